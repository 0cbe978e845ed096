package natives

import (
	"github.com/drses/frozen-realms-shim/graph"
)

// Bundle is a pre-configured set of related natives.
type Bundle interface {
	Natives() []Native
}

// staticBundle implements Bundle with a fixed list.
type staticBundle struct {
	natives []Native
}

func (b *staticBundle) Natives() []Native {
	return b.natives
}

// NewBundle wraps a fixed list of natives.
func NewBundle(natives ...Native) Bundle {
	return &staticBundle{natives: natives}
}

// StandardBundles returns every standard bundle, closing over in.
func StandardBundles(in *graph.Intrinsics) []Bundle {
	return []Bundle{
		ObjectBundle(in),
		FunctionBundle(in),
		ArrayBundle(in),
		StringBundle(in),
		NumberBundle(in),
		BooleanBundle(in),
		MathBundle(),
		JSONBundle(in),
		ErrorBundle(in),
		GlobalBundle(),
	}
}

func fn(name string, length int, f graph.NativeFunc) Native {
	return Native{Name: name, Length: length, Func: f}
}

func ctor(name string, length int, call, construct graph.NativeFunc) Native {
	return Native{Name: name, Length: length, Func: call, Construct: construct}
}
