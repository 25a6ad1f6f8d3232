//go:build linux

package eval

/*
#cgo LDFLAGS: -ldl -lffi
#include <dlfcn.h>
#include <ffi.h>
#include <stdint.h>
#include <stdlib.h>

static void *sb_dlopen(const char *path) { return dlopen(path, RTLD_NOW | RTLD_GLOBAL); }
static char *sb_dlerror(void) { return dlerror(); }
static void *sb_dlsym(void *handle, const char *name) {
	dlerror();
	return dlsym(handle, name);
}

#define SB_MAX_ARGS 16

typedef struct {
	ffi_cif   cif;
	ffi_type *atypes[SB_MAX_ARGS];
	int       nargs;
} sb_sig;

static ffi_type *sb_type(int kind) {
	switch (kind) {
	case 1:  return &ffi_type_sint8;
	case 2:  return &ffi_type_uint8;
	case 3:  return &ffi_type_sint16;
	case 4:  return &ffi_type_uint16;
	case 5:  return &ffi_type_sint32;
	case 6:  return &ffi_type_uint32;
	case 7:  return &ffi_type_sint64;
	case 8:  return &ffi_type_uint64;
	case 9:  return &ffi_type_float;
	case 10: return &ffi_type_double;
	case 11: return &ffi_type_pointer;
	}
	return &ffi_type_void;
}

static void sb_set_atype(sb_sig *sig, int i, int kind) { sig->atypes[i] = sb_type(kind); }

static int sb_prep(sb_sig *sig, int nargs, int retKind) {
	sig->nargs = nargs;
	return ffi_prep_cif(&sig->cif, FFI_DEFAULT_ABI, nargs, sb_type(retKind), sig->atypes);
}

static void sb_call(sb_sig *sig, void *fn, void **avalues, void *rvalue) {
	ffi_call(&sig->cif, FFI_FN(fn), rvalue, avalues);
}
*/
import "C"

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/sable-lang/sable/pkg/ast"
	"github.com/sable-lang/sable/pkg/token"
)

// ffiKind codes mirror sb_type in the preamble.
type ffiKind int

const (
	ffiVoid ffiKind = iota
	ffiSint8
	ffiUint8
	ffiSint16
	ffiUint16
	ffiSint32
	ffiUint32
	ffiSint64
	ffiUint64
	ffiFloat
	ffiDouble
	ffiPointer
)

var ffiKindByName = map[string]ffiKind{
	"void":  ffiVoid,
	"int8":  ffiSint8, "uint8": ffiUint8,
	"int16": ffiSint16, "uint16": ffiUint16,
	"int32": ffiSint32, "uint32": ffiUint32,
	"int64": ffiSint64, "uint64": ffiUint64,
	"int": ffiSint64, "uint": ffiUint64,
	"float32": ffiFloat, "float64": ffiDouble, "float": ffiDouble,
	"bool":   ffiUint8,
	"string": ffiPointer,
	"handle": ffiPointer,
}

// freeStringSymbol is the contract for string-returning natives: if the
// linked library exports it, the interpreter calls it on every returned
// char* after copying the bytes out.
const freeStringSymbol = "sable_free_string"

type ffiSignature struct {
	sig     *C.sb_sig
	ret     ffiKind
	params  []ffiKind
	retName string
}

// NativeLibrary is one dlopen'd shared object with its resolved symbols and
// prepared call signatures cached.
type NativeLibrary struct {
	Path    string
	handle  unsafe.Pointer
	symbols map[string]unsafe.Pointer
	sigs    map[string]*ffiSignature

	freeString       unsafe.Pointer
	freeStringLooked bool
	freeSig          *C.sb_sig
}

func openNativeLibrary(path string) (*NativeLibrary, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	handle := C.sb_dlopen(cpath)
	if handle == nil {
		return nil, fmt.Errorf("%s", C.GoString(C.sb_dlerror()))
	}
	return &NativeLibrary{
		Path:    path,
		handle:  handle,
		symbols: make(map[string]unsafe.Pointer),
		sigs:    make(map[string]*ffiSignature),
	}, nil
}

func (lib *NativeLibrary) symbol(name string) unsafe.Pointer {
	if p, ok := lib.symbols[name]; ok {
		return p
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	p := C.sb_dlsym(lib.handle, cname)
	if p != nil {
		lib.symbols[name] = p
	}
	return p
}

// signature prepares (and caches) the libffi call interface for a declared
// external signature.
func (lib *NativeLibrary) signature(name, retName string, params []*ast.Param) (*ffiSignature, error) {
	var key strings.Builder
	key.WriteString(retName)
	for _, p := range params {
		key.WriteByte(',')
		key.WriteString(p.TypeName)
	}
	if s, ok := lib.sigs[key.String()]; ok {
		return s, nil
	}

	if len(params) > C.SB_MAX_ARGS {
		return nil, fmt.Errorf("%s declares %d parameters, maximum is %d", name, len(params), C.SB_MAX_ARGS)
	}
	ret, ok := ffiKindByName[retName]
	if !ok {
		return nil, fmt.Errorf("return type %q cannot cross the native boundary", retName)
	}

	s := &ffiSignature{
		sig:     (*C.sb_sig)(C.malloc(C.sizeof_sb_sig)),
		ret:     ret,
		retName: retName,
	}
	for i, p := range params {
		k, ok := ffiKindByName[p.TypeName]
		if !ok || p.IsArray {
			C.free(unsafe.Pointer(s.sig))
			return nil, fmt.Errorf("parameter type %q cannot cross the native boundary", p.TypeName)
		}
		s.params = append(s.params, k)
		C.sb_set_atype(s.sig, C.int(i), C.int(k))
	}
	if C.sb_prep(s.sig, C.int(len(params)), C.int(ret)) != C.FFI_OK {
		C.free(unsafe.Pointer(s.sig))
		return nil, fmt.Errorf("cannot prepare call interface for %s", name)
	}
	lib.sigs[key.String()] = s
	return s, nil
}

// callExternal marshals the arguments, invokes the native symbol through
// libffi, and converts the result back into a runtime value.
func (ip *Interpreter) callExternal(ext *External, args []Object, tok token.Token) Object {
	if len(args) != len(ext.Parameters) {
		return ip.errorAt(ErrArityMismatch, tok, "%s expects %d argument(s), got %d",
			ext.Name, len(ext.Parameters), len(args))
	}

	fn := ext.Lib.symbol(ext.Name)
	if fn == nil {
		return ip.errorAt(ErrNativeLink, tok, "entry point %q not found in %s", ext.Name, ext.Lib.Path)
	}
	sig, err := ext.Lib.signature(ext.Name, ext.ReturnType, ext.Parameters)
	if err != nil {
		return ip.errorAt(ErrNativeLink, tok, "%v", err)
	}

	// argument cells and the value-pointer vector live in C memory to keep
	// the cgo pointer rules satisfied
	n := len(args)
	slots := 1
	if n > 0 {
		slots = n
	}
	cells := C.malloc(C.size_t(8 * slots))
	avalues := (*unsafe.Pointer)(C.malloc(C.size_t(unsafe.Sizeof(unsafe.Pointer(nil))) * C.size_t(slots)))
	rvalue := C.malloc(8)
	var cstrings []unsafe.Pointer
	defer func() {
		for _, s := range cstrings {
			C.free(s)
		}
		C.free(cells)
		C.free(unsafe.Pointer(avalues))
		C.free(rvalue)
	}()

	for i, arg := range args {
		cell := unsafe.Add(cells, i*8)
		if errObj := ip.marshalArg(cell, sig.params[i], ext.Parameters[i].TypeName, arg, &cstrings, tok); errObj != nil {
			return errObj
		}
		vec := (*unsafe.Pointer)(unsafe.Add(unsafe.Pointer(avalues), uintptr(i)*unsafe.Sizeof(unsafe.Pointer(nil))))
		*vec = cell
	}

	C.sb_call(sig.sig, fn, avalues, rvalue)
	return ip.unmarshalResult(ext, sig, rvalue)
}

func (ip *Interpreter) marshalArg(cell unsafe.Pointer, kind ffiKind, declared string, arg Object, cstrings *[]unsafe.Pointer, tok token.Token) *Error {
	// zero the full cell so narrow writes leave clean high bytes
	*(*uint64)(cell) = 0

	switch kind {
	case ffiFloat:
		if !IsNumeric(arg) {
			return ip.errorAt(ErrTypeMismatch, tok, "expected %s argument, got %s", declared, typeName(arg))
		}
		*(*float32)(cell) = float32(toFloat64(arg))
	case ffiDouble:
		if !IsNumeric(arg) {
			return ip.errorAt(ErrTypeMismatch, tok, "expected %s argument, got %s", declared, typeName(arg))
		}
		*(*float64)(cell) = toFloat64(arg)
	case ffiPointer:
		switch v := arg.(type) {
		case *String:
			cs := unsafe.Pointer(C.CString(v.Value))
			*cstrings = append(*cstrings, cs)
			*(*unsafe.Pointer)(cell) = cs
		case *Handle:
			*(*uintptr)(cell) = v.Ptr
		case *Null:
			*(*uintptr)(cell) = 0
		default:
			return ip.errorAt(ErrTypeMismatch, tok, "expected %s argument, got %s", declared, typeName(arg))
		}
	default:
		switch v := arg.(type) {
		case *Bool:
			if v.Value {
				*(*uint64)(cell) = 1
			}
		case *Int:
			*(*int64)(cell) = v.Value
		case *Uint:
			*(*uint64)(cell) = v.Value
		case *Float:
			*(*int64)(cell) = int64(v.Value)
		default:
			return ip.errorAt(ErrTypeMismatch, tok, "expected %s argument, got %s", declared, typeName(arg))
		}
	}
	return nil
}

func (ip *Interpreter) unmarshalResult(ext *External, sig *ffiSignature, rvalue unsafe.Pointer) Object {
	switch sig.retName {
	case "void":
		return NULL
	case "bool":
		return nativeBool(*(*uint8)(rvalue) != 0)
	case "string":
		raw := *(*unsafe.Pointer)(rvalue)
		if raw == nil {
			return NULL
		}
		out := C.GoString((*C.char)(raw))
		ext.Lib.releaseNativeString(raw)
		return &String{Value: out}
	case "handle":
		return &Handle{Ptr: *(*uintptr)(rvalue)}
	case "float32":
		return &Float{Value: float64(*(*float32)(rvalue)), NK: NumFloat32}
	case "float64", "float":
		return &Float{Value: *(*float64)(rvalue), NK: NumFloat64}
	}

	k := numKindByName[sig.retName]
	if k.isSigned() {
		var v int64
		switch sig.ret {
		case ffiSint8:
			v = int64(*(*int8)(rvalue))
		case ffiSint16:
			v = int64(*(*int16)(rvalue))
		case ffiSint32:
			v = int64(*(*int32)(rvalue))
		default:
			v = *(*int64)(rvalue)
		}
		return &Int{Value: v, NK: k}
	}
	var v uint64
	switch sig.ret {
	case ffiUint8:
		v = uint64(*(*uint8)(rvalue))
	case ffiUint16:
		v = uint64(*(*uint16)(rvalue))
	case ffiUint32:
		v = uint64(*(*uint32)(rvalue))
	default:
		v = *(*uint64)(rvalue)
	}
	return &Uint{Value: v, NK: k}
}

// releaseNativeString hands a returned char* back to the library through
// its exported free-string entry point, if it has one. Libraries that
// return heap strings must export the symbol; there is no other way for
// the interpreter to know the allocator that owns the memory.
func (lib *NativeLibrary) releaseNativeString(raw unsafe.Pointer) {
	if !lib.freeStringLooked {
		lib.freeString = lib.symbol(freeStringSymbol)
		lib.freeStringLooked = true
	}
	if lib.freeString == nil {
		return
	}
	if lib.freeSig == nil {
		sig := (*C.sb_sig)(C.malloc(C.sizeof_sb_sig))
		C.sb_set_atype(sig, 0, C.int(ffiPointer))
		if C.sb_prep(sig, 1, C.int(ffiVoid)) != C.FFI_OK {
			C.free(unsafe.Pointer(sig))
			return
		}
		lib.freeSig = sig
	}
	cell := C.malloc(8)
	defer C.free(cell)
	*(*unsafe.Pointer)(cell) = raw
	avalue := C.malloc(C.size_t(unsafe.Sizeof(unsafe.Pointer(nil))))
	defer C.free(avalue)
	*(*unsafe.Pointer)(avalue) = cell
	C.sb_call(lib.freeSig, lib.freeString, (*unsafe.Pointer)(avalue), nil)
}
