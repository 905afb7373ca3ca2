package middleware

import (
	"log/slog"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/httputil"
)

// RegisterPprof mounts the runtime profiler under /debug/pprof, reachable
// only from allowedCIDRs.
func RegisterPprof(r chi.Router, allowedCIDRs []string, logger *slog.Logger) {
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(IPAllowlist(allowedCIDRs, logger))
		for name, h := range map[string]http.HandlerFunc{
			"cmdline": pprof.Cmdline,
			"profile": pprof.Profile,
			"symbol":  pprof.Symbol,
			"trace":   pprof.Trace,
		} {
			r.HandleFunc("/"+name, h)
		}
		r.HandleFunc("/*", pprof.Index)
	})
}

// IPAllowlist admits only peers whose address lies in one of cidrs.
// X-Forwarded-For is not consulted.
func IPAllowlist(cidrs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			logger.Warn("ignoring invalid allowlist entry",
				slog.String("cidr", cidr),
				slog.String("error", err.Error()),
			)
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}

	allowed := func(remote string) bool {
		addr, ok := peerAddr(remote)
		if !ok {
			return false
		}
		for _, p := range prefixes {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(r.RemoteAddr) {
				logger.WarnContext(r.Context(), "peer not in allowlist",
					slog.String("remote", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteError(w, r, apperrors.Forbidden("access restricted by IP allowlist"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peerAddr parses RemoteAddr with or without a port.
func peerAddr(remote string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(remote); err == nil {
		return ap.Addr().Unmap(), true
	}
	addr, err := netip.ParseAddr(remote)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
