package vanillaextract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Zhangdroid/vanilla-extract/internal/errors"
	"github.com/Zhangdroid/vanilla-extract/pkg/filescope"
	"github.com/Zhangdroid/vanilla-extract/pkg/virtualmod"
)

// RuntimePath is where the dev server mounts the style-injection
// runtime imported by every injection shim.
const RuntimePath = "/@vanilla-extract/runtime.js"

// ResolveID claims ownership of virtual module identifiers. It must run
// before the host's default resolution, since virtual ids are not real
// paths. Ids outside the reserved namespace are reported as not handled.
func (p *Plugin) ResolveID(raw string) (string, bool) {
	if _, ok := virtualmod.Parse(raw); !ok {
		return "", false
	}
	return raw, true
}

// Load serves the content of a virtual module. The second return is
// false for ids the plugin does not own. Requesting a scope the registry
// never saw is a hard error (E202), never silently empty content.
func (p *Plugin) Load(raw string) (string, bool, error) {
	id, ok := virtualmod.Parse(raw)
	if !ok {
		return "", false, nil
	}

	css, found := p.registry.Get(id.ScopeID)
	if !found {
		return "", true, errors.New(errors.CodeUnregisteredScope).
			WithDetail("requested id: " + raw)
	}

	p.m.VirtualLoads.WithLabelValues(id.Kind.String()).Inc()

	if id.Kind == virtualmod.KindCSS {
		return css, true, nil
	}

	scope, err := filescope.Decode(id.ScopeID)
	if err != nil {
		return "", true, err
	}
	return injectionShim(scope, id.ScopeID, css), true, nil
}

// injectionShim renders the dev-mode JS module for a scope: one
// immediate style injection at evaluation time, then re-injection on
// every hot-update event, with no re-evaluation of the module itself.
func injectionShim(scope filescope.Scope, scopeID, css string) string {
	meta, _ := json.Marshal(struct {
		FilePath string `json:"filePath"`
		DebugID  string `json:"debugId,omitempty"`
	}{scope.FilePath, scope.DebugID})
	payload, _ := json.Marshal(css)

	var b strings.Builder
	fmt.Fprintf(&b, "import { injectStyle, onStyleUpdate } from %q;\n", RuntimePath)
	fmt.Fprintf(&b, "const inject = (css) => injectStyle(%s, css);\n", meta)
	fmt.Fprintf(&b, "inject(%s);\n", payload)
	fmt.Fprintf(&b, "onStyleUpdate(%q, inject);\n", HotUpdateEvent(scopeID))
	return b.String()
}
