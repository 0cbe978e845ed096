package natives

import (
	"math"
	"strconv"
	"strings"

	"github.com/drses/frozen-realms-shim/graph"
)

// NumberBundle returns Number and the Number.prototype methods.
func NumberBundle(in *graph.Intrinsics) Bundle {
	call := func(c graph.Call) (graph.Value, error) {
		if len(c.Args) == 0 {
			return 0.0, nil
		}
		return argNumber(c, 0)
	}
	construct := func(c graph.Call) (graph.Value, error) {
		n, err := call(c)
		if err != nil {
			return nil, err
		}
		w := graph.New(in.NumberPrototype)
		w.SetInternal(n)
		return w, nil
	}

	return NewBundle(
		ctor("Number", 1, call, construct),
		fn("Number.prototype.valueOf", 0, func(c graph.Call) (graph.Value, error) {
			return thisNumber(c, "valueOf")
		}),
		fn("Number.prototype.toString", 1, func(c graph.Call) (graph.Value, error) {
			n, err := thisNumber(c, "toString")
			if err != nil {
				return nil, err
			}
			radix, err := argIntDefault(c, 0, 10)
			if err != nil {
				return nil, err
			}
			if radix < 2 || radix > 36 {
				return nil, graph.Throw(graph.KindRangeError, "toString() radix must be between 2 and 36")
			}
			if radix == 10 || n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > 1<<53 {
				return graph.NumberToString(n), nil
			}
			return strconv.FormatInt(int64(n), radix), nil
		}),
		fn("Number.prototype.toFixed", 1, func(c graph.Call) (graph.Value, error) {
			n, err := thisNumber(c, "toFixed")
			if err != nil {
				return nil, err
			}
			digits, err := argIntDefault(c, 0, 0)
			if err != nil {
				return nil, err
			}
			if digits < 0 || digits > 100 {
				return nil, graph.Throw(graph.KindRangeError, "toFixed() digits argument must be between 0 and 100")
			}
			if math.IsNaN(n) || math.Abs(n) >= 1e21 {
				return graph.NumberToString(n), nil
			}
			return strconv.FormatFloat(n, 'f', digits, 64), nil
		}),
	)
}

// BooleanBundle returns Boolean and the Boolean.prototype methods.
func BooleanBundle(in *graph.Intrinsics) Bundle {
	call := func(c graph.Call) (graph.Value, error) {
		return graph.ToBoolean(c.Arg(0)), nil
	}
	construct := func(c graph.Call) (graph.Value, error) {
		w := graph.New(in.BooleanPrototype)
		w.SetInternal(graph.ToBoolean(c.Arg(0)))
		return w, nil
	}
	thisBool := func(c graph.Call) (bool, error) {
		switch x := c.This.(type) {
		case bool:
			return x, nil
		case *graph.Object:
			if b, ok := x.Internal().(bool); ok {
				return b, nil
			}
		}
		return false, graph.Throw(graph.KindTypeError, "Boolean.prototype method called on incompatible receiver")
	}

	return NewBundle(
		ctor("Boolean", 1, call, construct),
		fn("Boolean.prototype.valueOf", 0, func(c graph.Call) (graph.Value, error) {
			return thisBool(c)
		}),
		fn("Boolean.prototype.toString", 0, func(c graph.Call) (graph.Value, error) {
			b, err := thisBool(c)
			if err != nil {
				return nil, err
			}
			return strconv.FormatBool(b), nil
		}),
	)
}

// GlobalBundle returns the global functions isNaN, isFinite, parseInt and
// parseFloat.
func GlobalBundle() Bundle {
	return NewBundle(
		fn("isNaN", 1, func(c graph.Call) (graph.Value, error) {
			n, err := argNumber(c, 0)
			return math.IsNaN(n), err
		}),
		fn("isFinite", 1, func(c graph.Call) (graph.Value, error) {
			n, err := argNumber(c, 0)
			return !math.IsNaN(n) && !math.IsInf(n, 0), err
		}),
		fn("parseInt", 2, func(c graph.Call) (graph.Value, error) {
			s, err := argString(c, 0)
			if err != nil {
				return nil, err
			}
			radix, err := argIntDefault(c, 1, 0)
			if err != nil {
				return nil, err
			}
			return parseInt(s, radix), nil
		}),
		fn("parseFloat", 1, func(c graph.Call) (graph.Value, error) {
			s, err := argString(c, 0)
			if err != nil {
				return nil, err
			}
			return parseFloat(s), nil
		}),
	)
}

func thisNumber(c graph.Call, method string) (float64, error) {
	switch x := c.This.(type) {
	case float64:
		return x, nil
	case *graph.Object:
		if n, ok := x.Internal().(float64); ok {
			return n, nil
		}
	}
	return 0, graph.Throw(graph.KindTypeError, "Number.prototype.%s called on incompatible receiver", method)
}

func parseInt(s string, radix int) float64 {
	s = strings.TrimSpace(s)
	sign := 1.0
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	if (radix == 0 || radix == 16) && len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s, radix = s[2:], 16
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return nan()
	}
	end := 0
	for end < len(s) && digitValue(s[end]) < radix {
		end++
	}
	if end == 0 {
		return nan()
	}
	result := 0.0
	for _, ch := range []byte(s[:end]) {
		result = result*float64(radix) + float64(digitValue(ch))
	}
	return sign * result
}

func digitValue(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'z':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'Z':
		return int(ch-'A') + 10
	default:
		return 99
	}
}

// parseFloat parses the longest numeric prefix of s.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	for _, inf := range []string{"Infinity", "+Infinity"} {
		if strings.HasPrefix(s, inf) {
			return math.Inf(1)
		}
	}
	if strings.HasPrefix(s, "-Infinity") {
		return math.Inf(-1)
	}
	best := nan()
	for end := 1; end <= len(s); end++ {
		prefix := s[:end]
		if strings.ContainsAny(prefix, "xXpP_iInN") {
			break
		}
		if f, err := strconv.ParseFloat(prefix, 64); err == nil {
			best = f
		}
	}
	return best
}

func nan() float64 {
	return math.NaN()
}
