// Package ui renders nodebeat's status board.
//
// Two renderers read from a status.Board:
//
//	Dashboard - Bubble Tea program with one live row per target
//	Plain     - line-oriented "<target>: <line>" writer for pipes and logs
//
// # Color Scheme
//
// Colors are ANSI codes so they follow the terminal theme:
//
//	ColorError     (red)    - Failed status lines
//	ColorSecondary (blue)   - Target names
//	ColorInfo      (cyan)   - Liveness glyph
//	ColorMuted     (gray)   - Hints and placeholders
//
// Use DisableColors() to switch to monochrome output (for --no-color).
//
// # Liveness
//
// The glyph next to each target advances one MiniDot frame per published
// tick, so a frozen glyph means that target's poller has stalled. It says
// nothing about whether the last attempt succeeded.
package ui
