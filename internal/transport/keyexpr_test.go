package transport

import "testing"

func TestMatchKeyExpr(t *testing.T) {
	cases := []struct {
		expr string
		key  string
		want bool
	}{
		{"robot/cmd/vel", "robot/cmd/vel", true},
		{"robot/cmd/vel", "robot/cmd/pos", false},
		{"robot/*/vel", "robot/cmd/vel", true},
		{"robot/*/vel", "robot/cmd/extra/vel", false},
		{"robot/**", "robot/cmd/vel", true},
		{"robot/**", "robot", true},
		{"robot/**", "other/cmd/vel", false},
		{"**", "anything/at/all", true},
		{"**", "", true},
		{"*/cmd/*", "robot/cmd/vel", true},
		{"robot/**/vel", "robot/a/b/c/vel", true},
		{"robot/**/vel", "robot/vel", true},
	}
	for _, tc := range cases {
		if got := MatchKeyExpr(tc.expr, tc.key); got != tc.want {
			t.Errorf("MatchKeyExpr(%q, %q) = %v, want %v", tc.expr, tc.key, got, tc.want)
		}
	}
}
