package makelaarsland

import (
	"context"
	"testing"

	"makelaarsland-notifier/config"
)

func TestFindChromeBinaryPrefersConfigured(t *testing.T) {
	if got := findChromeBinary("/opt/chrome/chrome"); got != "/opt/chrome/chrome" {
		t.Errorf("findChromeBinary = %q", got)
	}
}

func TestRenderWithoutCredentials(t *testing.T) {
	r := New(&config.Config{MaxRetries: 1}, nil)
	defer r.Close()

	if _, err := r.Render(context.Background(), "https://mijn.makelaarsland.nl/aanbod/42"); err == nil {
		t.Fatal("Render without credentials: want error")
	}
	if r.browserCtx != nil {
		t.Error("browser started without credentials")
	}
}
