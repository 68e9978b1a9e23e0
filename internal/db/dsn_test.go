package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"postgres://u:p@localhost:5432/invoices", "postgres://u:p@localhost:5432/invoices"},
		{"  \"postgresql://u:p@localhost/invoices\"  ", "postgresql://u:p@localhost/invoices"},
		{"host=localhost user=u dbname=invoices", "host=localhost user=u dbname=invoices sslmode=disable"},
		{"host=localhost   user=u    sslmode=require", "host=localhost user=u sslmode=require"},
		{"not a dsn at all", "not a dsn at all"},
	}
	for _, tc := range cases {
		if got := NormalizeDSN(tc.in); got != tc.want {
			t.Fatalf("NormalizeDSN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGetNormalizedDSN(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=localhost user=u dbname=invoices")
	if got := GetNormalizedDSN(); got != "host=localhost user=u dbname=invoices sslmode=disable" {
		t.Fatalf("got %q", got)
	}
}
