package retainerkit_test

import (
	"os"
	"strings"
	"testing"
)

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestDockerfile(t *testing.T) {
	content := readFile(t, "Dockerfile")

	if !strings.Contains(content, "FROM golang:") {
		t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
	}

	// 最終ステージは軽量イメージであること
	var lastFrom string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "FROM ") {
			lastFrom = trimmed
		}
	}
	if !strings.Contains(lastFrom, "gcr.io/distroless") {
		t.Errorf("final stage should use distroless, got: %s", lastFrom)
	}

	for _, want := range []string{"./cmd/retainerkit", "ENTRYPOINT", "healthcheck"} {
		if !strings.Contains(content, want) {
			t.Errorf("Dockerfile should contain %q", want)
		}
	}
}

func TestDockerCompose(t *testing.T) {
	content := readFile(t, "docker-compose.yml")

	tests := []struct {
		name string
		want string
	}{
		{"dbサービス", "db:"},
		{"migrateサービス", "migrate:"},
		{"apiサービス", "api:"},
		{"workerサービス", "worker:"},
		{"PostgreSQLイメージ", "image: postgres:"},
		{"workerサブコマンド", `command: ["worker"]`},
		{"migrateサブコマンド", `command: ["migrate"]`},
		{"内部ネットワーク", "internal: true"},
		{"マイグレーション完了待ち", "service_completed_successfully"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(content, tt.want) {
				t.Errorf("docker-compose.yml should contain %q", tt.want)
			}
		})
	}
}
