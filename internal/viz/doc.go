// Package viz renders stored run columns as terminal charts or PNG files and
// holds the CLI's lipgloss styles.
package viz
