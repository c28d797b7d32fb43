package tool

import "testing"

func TestMatcherNilAlwaysAllows(t *testing.T) {
	var m *Matcher
	d := m.Match("bash", "/tmp")
	if d.Action != ActionAllow {
		t.Fatalf("expected nil matcher to allow, got %v", d.Action)
	}
}

func TestMatcherDenyBeatsAskBeatsAllow(t *testing.T) {
	m, err := NewMatcher(&PermissionConfig{
		Allow: []string{"bash"},
		Ask:   []string{"bash"},
		Deny:  []string{"bash(rm *)"},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	deny := m.Match("bash", "rm -rf /tmp/x")
	if deny.Action != ActionDeny {
		t.Fatalf("expected deny, got %v", deny.Action)
	}

	ask := m.Match("bash", "ls -la")
	if ask.Action != ActionAsk {
		t.Fatalf("expected ask to take priority over allow, got %v", ask.Action)
	}
}

func TestMatcherBareToolNameGlob(t *testing.T) {
	m, err := NewMatcher(&PermissionConfig{Allow: []string{"write_*"}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	d := m.Match("write_file", "anything")
	if d.Action != ActionAllow {
		t.Fatalf("expected glob tool name to allow, got %v", d.Action)
	}
	if d := m.Match("read_file", "anything"); d.Action != ActionUnknown {
		t.Fatalf("expected non-matching tool to stay unknown, got %v", d.Action)
	}
}

func TestMatcherBarePathGlobAnyTool(t *testing.T) {
	m, err := NewMatcher(&PermissionConfig{Deny: []string{"/etc/*"}})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if d := m.Match("read", "/etc/passwd"); d.Action != ActionDeny {
		t.Fatalf("expected path glob to deny regardless of tool, got %v", d.Action)
	}
	if d := m.Match("bash", "/etc/passwd"); d.Action != ActionDeny {
		t.Fatalf("expected path glob to apply to any tool, got %v", d.Action)
	}
}

func TestCompileRuleRejectsEmpty(t *testing.T) {
	if _, err := compileRule("   "); err == nil {
		t.Fatalf("expected error for empty rule")
	}
}

func TestDeriveTargetPrefersWorkingDir(t *testing.T) {
	call := Call{WorkingDir: "/work", Params: map[string]any{"command": "ls"}}
	if got := deriveTarget(call); got != "/work" {
		t.Fatalf("expected working dir, got %q", got)
	}
}

func TestDeriveTargetFallsBackToParams(t *testing.T) {
	call := Call{Params: map[string]any{"path": "/a/b"}}
	if got := deriveTarget(call); got != "/a/b" {
		t.Fatalf("expected param fallback, got %q", got)
	}
	if got := deriveTarget(Call{}); got != "" {
		t.Fatalf("expected empty target for empty call, got %q", got)
	}
}

func TestCacheScopedByWorkingDir(t *testing.T) {
	c := NewCache()
	c.Put("bash", "/a", ActionAllow)
	c.Put("bash", "/b", ActionDeny)

	if a, ok := c.Get("bash", "/a"); !ok || a != ActionAllow {
		t.Fatalf("expected cached allow for /a, got %v ok=%v", a, ok)
	}
	if a, ok := c.Get("bash", "/b"); !ok || a != ActionDeny {
		t.Fatalf("expected cached deny for /b, got %v ok=%v", a, ok)
	}
	if _, ok := c.Get("bash", "/c"); ok {
		t.Fatalf("expected no cache entry for unseen working dir")
	}
}
