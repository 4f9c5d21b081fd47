// Package ui implements the focus dashboard, an interactive terminal interface using bubbletea's Elm architecture.
//
// The dashboard shows three panes:
//  1. Timer : the focus timer's status and remaining time, refreshed every tick
//  2. Quote : the current selection from the rotation engine
//  3. Tasks : the merged task list with done toggles sent through the mutation pipeline
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Timer changes made elsewhere (the bridge, another process) arrive through the timer's subscription, so the pane
// never drifts from the persisted deadline.
//
// Keyboard navigation uses vim-style bindings (j/k, space, s/p/r, n, q) with contextual help displayed via
// charmbracelet/bubbles/help. The package also exports the lipgloss [Palette] used by the CLI's status lines.
package ui
