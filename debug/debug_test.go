package debug

import "testing"

func TestJSON(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{3, "3"},
		{"a", `"a"`},
		{[]string{"x", "y"}, `["x","y"]`},
		{map[string]int{"n": 1}, `{"n":1}`},
		{nil, "null"},
	}
	for _, tc := range tests {
		if got := JSON(tc.in); got != tc.want {
			t.Errorf("JSON(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
	ch := make(chan int)
	if got := JSON(ch); got == "" || got[0] != '0' {
		t.Errorf("JSON(chan) = %q, want its %%v form", got)
	}
}
