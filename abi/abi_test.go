package abi

import (
	"testing"

	"massattach/btfview"

	"github.com/cilium/ebpf/btf"
)

func intType() btf.Type  { return &btf.Int{Name: "int", Size: 4} }
func voidType() btf.Type { return &btf.Void{} }

func TestCheck_AcceptsIntReturnAndArgs(t *testing.T) {
	fn := btfview.FuncInfo{
		Name:       "sys_getpid",
		ReturnType: intType(),
		Params:     []btf.Type{intType(), &btf.Pointer{Target: intType()}},
	}

	ok, argCount := Check(fn)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if argCount != 2 {
		t.Errorf("argCount = %d, want 2", argCount)
	}
}

func TestCheck_RejectsVoidReturn(t *testing.T) {
	fn := btfview.FuncInfo{
		Name:       "do_something",
		ReturnType: voidType(),
	}

	ok, _ := Check(fn)
	if ok {
		t.Error("expected void-returning function to be rejected")
	}
}

func TestCheck_RejectsNilReturn(t *testing.T) {
	fn := btfview.FuncInfo{Name: "do_something"}
	ok, _ := Check(fn)
	if ok {
		t.Error("expected nil return type to be rejected")
	}
}

func TestCheck_RejectsTooManyArgs(t *testing.T) {
	params := make([]btf.Type, MaxArgs+1)
	for i := range params {
		params[i] = intType()
	}

	fn := btfview.FuncInfo{
		Name:       "too_many_args",
		ReturnType: intType(),
		Params:     params,
	}

	ok, argCount := Check(fn)
	if ok {
		t.Error("expected function with 12 args to be rejected")
	}
	if argCount != MaxArgs+1 {
		t.Errorf("argCount = %d, want %d", argCount, MaxArgs+1)
	}
}

func TestCheck_RejectsVarargParam(t *testing.T) {
	fn := btfview.FuncInfo{
		Name:       "variadic",
		ReturnType: intType(),
		Params:     []btf.Type{intType(), nil},
	}

	ok, _ := Check(fn)
	if ok {
		t.Error("expected vararg parameter to be rejected")
	}
}

func TestCheck_PointerReturn(t *testing.T) {
	tests := []struct {
		name   string
		target btf.Type
		want   bool
	}{
		{"pointer-to-void", &btf.Void{}, true},
		{"pointer-to-struct", &btf.Struct{Name: "foo", Size: 8}, true},
		{"pointer-to-union", &btf.Union{Name: "bar", Size: 8}, true},
		{"pointer-to-int", intType(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := btfview.FuncInfo{
				Name:       "returns_ptr",
				ReturnType: &btf.Pointer{Target: tt.target},
			}
			ok, _ := Check(fn)
			if ok != tt.want {
				t.Errorf("Check() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestCheck_RejectsNonIntPointerEnumArg(t *testing.T) {
	fn := btfview.FuncInfo{
		Name:       "bad_arg",
		ReturnType: intType(),
		Params:     []btf.Type{&btf.Struct{Name: "foo", Size: 8}},
	}

	ok, _ := Check(fn)
	if ok {
		t.Error("expected struct-by-value argument to be rejected")
	}
}
