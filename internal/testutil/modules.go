package testutil

// Hand-assembled WebAssembly fixtures. All of them use the MVP binary
// format and no WASI.

// AddModule imports env.add: (f64, f64) -> f64 and exports run: () -> f64,
// which returns add(3, 4).
var AddModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// types: (f64, f64) -> f64, () -> f64
	0x01, 0x0b, 0x02, 0x60, 0x02, 0x7c, 0x7c, 0x01, 0x7c, 0x60, 0x00, 0x01, 0x7c,
	// import env.add as function 0
	0x02, 0x0b, 0x01, 0x03, 'e', 'n', 'v', 0x03, 'a', 'd', 'd', 0x00, 0x00,
	// function 1 has type 1
	0x03, 0x02, 0x01, 0x01,
	// export run = function 1
	0x07, 0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x01,
	// f64.const 3; f64.const 4; call 0
	0x0a, 0x18, 0x01, 0x16, 0x00,
	0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08, 0x40,
	0x44, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x40,
	0x10, 0x00, 0x0b,
}

// BoomModule imports env.boom: () -> f64 and exports run: () -> f64, which
// returns boom().
var BoomModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7c,
	// import env.boom as function 0
	0x02, 0x0c, 0x01, 0x03, 'e', 'n', 'v', 0x04, 'b', 'o', 'o', 'm', 0x00, 0x00,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x01,
	// call 0
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x10, 0x00, 0x0b,
}

// TrapModule exports run: () -> f64, which executes unreachable.
var TrapModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7c,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x00,
	0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b,
}

// LoopModule exports run: () -> f64, which never returns.
var LoopModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7c,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x00,
	// loop; br 0; end; unreachable
	0x0a, 0x0a, 0x01, 0x08, 0x00, 0x03, 0x40, 0x0c, 0x00, 0x0b, 0x00, 0x0b,
}

// EmptyModule is a valid module with no imports and no exports.
var EmptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
