package mailpinger

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the IMAPS port used when a server string carries no port.
const DefaultPort uint16 = 993

// Address parse failures. Every error returned by [ParseAddress] wraps
// exactly one of these, so callers can test with [errors.Is].
var (
	ErrMissingPort         = errors.New("missing port in address")
	ErrUnterminatedBracket = errors.New("missing ']' in address")
	ErrTooManyColons       = errors.New("too many colons in address")
	ErrInvalidPort         = errors.New("invalid port")
)

// Address is a host and port pair derived from an [Account] server string.
type Address struct {
	Host string
	Port uint16
}

// String joins host and port, bracketing IPv6 literals.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}

// AddressError describes a server string that could not be parsed.
type AddressError struct {
	// Server is the offending input.
	Server string

	// Err is one of the parse sentinels (ErrMissingPort, ...).
	Err error
}

func (e *AddressError) Error() string {
	return "invalid server " + strconv.Quote(e.Server) + ": " + e.Err.Error()
}

func (e *AddressError) Unwrap() error { return e.Err }

// ParseAddress splits a server string into host and port.
//
// Accepted forms are "host", "host:port" and "[ipv6]:port". A string with
// no colon at all gets [DefaultPort]; a bracketed IPv6 literal always needs
// an explicit port. Unbracketed IPv6 literals are rejected with
// [ErrTooManyColons].
func ParseAddress(server string) (Address, error) {
	host, port, err := splitHostPort(server)
	if err != nil {
		return Address{}, &AddressError{Server: server, Err: err}
	}
	if port == "" {
		return Address{Host: host, Port: DefaultPort}, nil
	}

	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return Address{}, &AddressError{Server: server, Err: ErrInvalidPort}
	}
	return Address{Host: host, Port: uint16(n)}, nil
}

// splitHostPort returns host and the raw port text. An empty port with a
// nil error means the input had no port segment at all.
func splitHostPort(s string) (host, port string, err error) {
	if strings.HasPrefix(s, "[") {
		if strings.IndexByte(s, ':') < 0 {
			// a bracketed host never gets the default port
			return "", "", ErrMissingPort
		}
		end := strings.IndexByte(s, ']')
		switch {
		case end < 0:
			return "", "", ErrUnterminatedBracket
		case end+1 == len(s):
			return "", "", ErrMissingPort
		case s[end+1] != ':':
			return "", "", ErrMissingPort
		}
		port = s[end+2:]
		if strings.IndexByte(port, ':') >= 0 {
			return "", "", ErrTooManyColons
		}
		if port == "" {
			// "[::1]:" has a separator but nothing after it
			return "", "", ErrInvalidPort
		}
		return s[1:end], port, nil
	}

	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return s, "", nil
	}
	host = s[:i]
	if strings.IndexByte(host, ':') >= 0 {
		return "", "", ErrTooManyColons
	}
	port = s[i+1:]
	if port == "" {
		return "", "", ErrInvalidPort
	}
	return host, port, nil
}
