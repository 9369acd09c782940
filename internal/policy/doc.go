// Package policy maps alert severity levels to the ordered set of
// notification actions that apply to them. The table is loaded once at
// startup and immutable thereafter.
package policy
