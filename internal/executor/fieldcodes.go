package executor

import (
	"github.com/dlclark/regexp2"
)

// fieldCodePattern matches a field code with the whitespace in front of it.
// regexp2 keeps \s and \w Unicode-aware.
const fieldCodePattern = `\s*%\w`

// FieldCodes removes desktop entry field codes (%f, %U, %i, ...) from Exec values.
// Nothing is substituted since the launcher never passes files or URLs.
type FieldCodes struct {
	re *regexp2.Regexp
}

// NewFieldCodes compiles the field code pattern.
func NewFieldCodes() *FieldCodes {
	return &FieldCodes{re: regexp2.MustCompile(fieldCodePattern, regexp2.None)}
}

// Strip removes every field code from cmd.
func (f *FieldCodes) Strip(cmd string) string {
	stripped, err := f.re.Replace(cmd, "", -1, -1)
	if err != nil {
		// Replace only fails on match timeout, which is not set.
		return cmd
	}
	return stripped
}
