package registry

import "github.com/halcyon-dev/flowpilot/internal/domain"

// SeedDemoActivity registers a realistic burst of activity: a rename
// workflow in one directory plus an app-switch/copy-paste cycle. Used by
// the simulate command for demos and manual testing.
func SeedDemoActivity(r *Registry) {
	fileOps := []map[string]any{
		{"event_type": "created", "src_path": "/home/user/Downloads/IMG_001.jpg", "file_extension": ".jpg", "operation_category": "file_management"},
		{"event_type": "renamed", "src_path": "/home/user/Downloads/IMG_001.jpg", "dest_path": "/home/user/Downloads/vacation_001.jpg", "file_extension": ".jpg", "operation_category": "file_management"},
		{"event_type": "created", "src_path": "/home/user/Downloads/IMG_002.jpg", "file_extension": ".jpg", "operation_category": "file_management"},
		{"event_type": "renamed", "src_path": "/home/user/Downloads/IMG_002.jpg", "dest_path": "/home/user/Downloads/vacation_002.jpg", "file_extension": ".jpg", "operation_category": "file_management"},
	}
	for _, details := range fileOps {
		r.Register(domain.ActionFileOperation, details, "simulator", nil)
	}

	cycle := []struct {
		t       domain.ActionType
		details map[string]any
	}{
		{domain.ActionAppSwitch, map[string]any{"app_name": "Excel"}},
		{domain.ActionKeyboardShortcut, map[string]any{"shortcut": "ctrl+c"}},
		{domain.ActionAppSwitch, map[string]any{"app_name": "Word"}},
		{domain.ActionKeyboardShortcut, map[string]any{"shortcut": "ctrl+v"}},
	}
	for i := 0; i < 2; i++ {
		for _, a := range cycle {
			r.Register(a.t, a.details, "simulator", nil)
		}
	}
}
