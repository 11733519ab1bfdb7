package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"recount/internal/domain"
)

func TestFormatCounts(t *testing.T) {
	cases := []struct {
		in   []float64
		want string
	}{
		{nil, ""},
		{[]float64{10}, "10"},
		{[]float64{10, 10.5, 0}, "10 / 10.5 / 0"},
	}
	for _, c := range cases {
		if got := formatCounts(c.in); got != c.want {
			t.Fatalf("formatCounts(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCommandTree(t *testing.T) {
	registerCommands()
	for _, path := range [][]string{
		{"serve"},
		{"item", "submit"},
		{"item", "edit"},
		{"catalog", "seed"},
		{"report", "summary"},
		{"reconcile"},
		{"config", "init"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd == rootCmd {
			t.Fatalf("command %v not registered: %v", path, err)
		}
	}
}

func TestRenderFields(t *testing.T) {
	var out bytes.Buffer
	u := domain.User{ID: "u1", Name: "Ana", Email: "ana@example.com", PasswordHash: "secret-hash", Role: "leader"}
	if err := renderFields(&out, u); err != nil {
		t.Fatalf("render: %v", err)
	}
	got := out.String()
	for _, want := range []string{"FIELD", "VALUE", "email", "ana@example.com", "role", "leader"} {
		if !strings.Contains(got, want) {
			t.Fatalf("table missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "secret-hash") || strings.Contains(got, "{") {
		t.Fatalf("expected a plain table:\n%s", got)
	}
	if strings.Index(got, "created_at") > strings.Index(got, "email") {
		t.Fatalf("fields not sorted:\n%s", got)
	}

	out.Reset()
	if err := renderFields(&out, []string{"a", "b"}); err != nil {
		t.Fatalf("render list: %v", err)
	}
	if !strings.Contains(out.String(), `"a"`) {
		t.Fatalf("non-object output: %q", out.String())
	}

	if err := renderFields(&out, map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatalf("expected an encode error")
	}
}

func TestServeRejectsNonPositiveHealthInterval(t *testing.T) {
	for _, v := range []string{"0", "-5s"} {
		cmd := serveCmd()
		if err := cmd.Flags().Set("health-interval", v); err != nil {
			t.Fatalf("set flag: %v", err)
		}
		err := cmd.RunE(cmd, nil)
		if err == nil || !strings.Contains(err.Error(), "--health-interval must be positive") {
			t.Fatalf("health-interval %s: got %v", v, err)
		}
	}
}

func TestServeFailsBeforeStartingWhenGRPCPortIsBusy(t *testing.T) {
	busy, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	free, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	httpAddr := free.Addr().String()
	free.Close()

	t.Setenv("RECOUNT_JWT_SECRET", "test-secret")
	t.Cleanup(viper.Reset)
	viper.Set("workspace", t.TempDir())
	viper.Set("addr", httpAddr)
	viper.Set("grpc-addr", busy.Addr().String())

	cmd := serveCmd()
	cmd.SetContext(context.Background())
	err = cmd.RunE(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "grpc listen") {
		t.Fatalf("expected grpc listen error, got %v", err)
	}
	ln, err := net.Listen("tcp4", httpAddr)
	if err != nil {
		t.Fatalf("http address still bound after failed start: %v", err)
	}
	ln.Close()
}
