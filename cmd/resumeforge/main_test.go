package main

import "testing"

func TestConfigFile(t *testing.T) {
	t.Setenv("RESUMEFORGE_CONFIG", "/env/config.yaml")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"separate value", []string{"serve", "--config", "a.yaml"}, "a.yaml"},
		{"equals form", []string{"--config=b.yaml", "scan"}, "b.yaml"},
		{"env fallback", []string{"serve", "--port", "9000"}, "/env/config.yaml"},
		{"after terminator", []string{"scan", "--", "--config", "c.yaml"}, "/env/config.yaml"},
		{"dangling flag", []string{"--config"}, "/env/config.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := configFile(tt.args); got != tt.want {
				t.Errorf("configFile(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
