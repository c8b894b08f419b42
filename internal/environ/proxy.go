package environ

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// RespectProxyVar opts in to keeping the caller's proxy settings for
// downloads.
const RespectProxyVar = "FREECRAFTER_RESPECT_PROXY"

var proxyVars = []string{"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY"}

var noProxyVars = []string{"NO_PROXY", "no_proxy"}

// RespectProxy reports whether the opt-in variable is set to a truthy value.
func RespectProxy(e Environ) bool {
	switch strings.ToLower(strings.TrimSpace(e[RespectProxyVar])) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SanitizeProxies returns a copy of base suitable for download commands.
// Unless respect is set, every HTTP/HTTPS/ALL proxy variable is removed in
// any letter case and NO_PROXY/no_proxy gain a "*" entry, appended to what
// was already there.
func SanitizeProxies(base Environ, respect bool, log logrus.FieldLogger) Environ {
	out := base.Clone()
	if respect {
		log.Infof("%s set; respecting proxy settings", RespectProxyVar)
		return out
	}

	var removed []string
	for key := range out {
		if isProxyVar(key) {
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)
	for _, key := range removed {
		delete(out, key)
		log.Infof("Removing proxy variable %s for download", key)
	}

	for _, key := range noProxyVars {
		out[key] = appendWildcard(out[key])
	}
	return out
}

func isProxyVar(key string) bool {
	for _, name := range proxyVars {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

func appendWildcard(current string) string {
	current = strings.TrimSpace(current)
	if current == "" {
		return "*"
	}
	for _, entry := range strings.Split(current, ",") {
		if strings.TrimSpace(entry) == "*" {
			return current
		}
	}
	return current + ",*"
}
