package credentials

import (
	"crypto/tls"
	"strings"

	"github.com/brickingsoft/errors"
)

var (
	ErrPolicySyntax = errors.Define("credentials: cipher policy syntax error")
)

// Policy is the parsed cipher priority policy applied to every session.
// A nil CipherSuites list leaves suite selection to the engine default.
type Policy struct {
	MinVersion   uint16
	MaxVersion   uint16
	CipherSuites []uint16
}

// DefaultPolicy is the engine's built-in policy, used directly and as the
// fallback when a configured policy string fails to parse.
func DefaultPolicy() *Policy {
	return &Policy{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS13,
	}
}

var policyVersions = map[string]uint16{
	"VERS-TLS1.2": tls.VersionTLS12,
	"VERS-TLS1.3": tls.VersionTLS13,
}

var policyCiphers = map[string][]uint16{
	"AES-128-GCM": {
		tls.TLS_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	},
	"AES-256-GCM": {
		tls.TLS_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	},
	"CHACHA20-POLY1305": {
		tls.TLS_CHACHA20_POLY1305_SHA256,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	},
}

// ParsePolicy parses a colon separated priority string into a Policy.
//
// The first element is a base keyword: NORMAL or DEFAULT (the default
// policy), SECURE128 (128 bit suites and up), SECURE256 (256 bit suites
// only), or LEGACY (additionally enables TLS 1.0/1.1 range, mapped to the
// lowest supported version). Subsequent elements enable (+) or disable (-)
// protocol versions or cipher families, for example
// "NORMAL:-VERS-TLS1.2:+CHACHA20-POLY1305". A syntax error reports the
// offending element so the caller can log it and fall back.
func ParsePolicy(s string) (*Policy, error) {
	policy := DefaultPolicy()
	if s == "" {
		return policy, nil
	}

	elems := strings.Split(s, ":")
	switch elems[0] {
	case "NORMAL", "DEFAULT":
	case "LEGACY":
		policy.MinVersion = tls.VersionTLS10
	case "SECURE128":
		policy.CipherSuites = suites("AES-128-GCM", "AES-256-GCM", "CHACHA20-POLY1305")
	case "SECURE256":
		policy.CipherSuites = suites("AES-256-GCM", "CHACHA20-POLY1305")
	default:
		return nil, syntaxError(elems[0])
	}

	for _, elem := range elems[1:] {
		if len(elem) < 2 {
			return nil, syntaxError(elem)
		}
		mod, name := elem[0], elem[1:]
		switch mod {
		case '+':
			if vers, has := policyVersions[name]; has {
				if vers < policy.MinVersion {
					policy.MinVersion = vers
				}
				if vers > policy.MaxVersion {
					policy.MaxVersion = vers
				}
				continue
			}
			if cs, has := policyCiphers[name]; has {
				policy.CipherSuites = appendSuites(policy.CipherSuites, cs)
				continue
			}
			return nil, syntaxError(elem)
		case '-':
			if vers, has := policyVersions[name]; has {
				// Disabling an edge version narrows the range.
				if vers == policy.MinVersion && policy.MaxVersion > vers {
					policy.MinVersion = nextVersion(vers)
				} else if vers == policy.MaxVersion && policy.MinVersion < vers {
					policy.MaxVersion = prevVersion(vers)
				} else if policy.MinVersion == vers && policy.MaxVersion == vers {
					return nil, syntaxError(elem)
				}
				continue
			}
			if cs, has := policyCiphers[name]; has {
				policy.CipherSuites = removeSuites(policy.CipherSuites, cs)
				continue
			}
			return nil, syntaxError(elem)
		default:
			return nil, syntaxError(elem)
		}
	}
	return policy, nil
}

func syntaxError(at string) error {
	return errors.New("credentials: cipher policy syntax error at: "+at, errors.WithWrap(ErrPolicySyntax))
}

func suites(names ...string) []uint16 {
	var out []uint16
	for _, name := range names {
		out = append(out, policyCiphers[name]...)
	}
	return out
}

func appendSuites(out []uint16, cs []uint16) []uint16 {
	for _, c := range cs {
		if !containsSuite(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func removeSuites(out []uint16, cs []uint16) []uint16 {
	if out == nil {
		// Default list: start from every mapped suite, then remove.
		out = suites("AES-128-GCM", "AES-256-GCM", "CHACHA20-POLY1305")
	}
	kept := out[:0]
	for _, c := range out {
		if !containsSuite(cs, c) {
			kept = append(kept, c)
		}
	}
	return kept
}

func containsSuite(cs []uint16, c uint16) bool {
	for _, have := range cs {
		if have == c {
			return true
		}
	}
	return false
}

func nextVersion(vers uint16) uint16 {
	switch vers {
	case tls.VersionTLS10:
		return tls.VersionTLS11
	case tls.VersionTLS11:
		return tls.VersionTLS12
	default:
		return tls.VersionTLS13
	}
}

func prevVersion(vers uint16) uint16 {
	switch vers {
	case tls.VersionTLS13:
		return tls.VersionTLS12
	case tls.VersionTLS12:
		return tls.VersionTLS11
	default:
		return tls.VersionTLS10
	}
}
