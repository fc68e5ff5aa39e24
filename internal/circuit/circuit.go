// Package circuit reads OpenQASM 2 circuit files. The connector treats the
// circuit as an opaque payload; it only looks far enough to validate the
// dialect and discover the declared classical registers.
package circuit

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/qstone/internal/apperr"
)

var (
	ErrEmpty     = errors.New("circuit is empty")
	ErrNoHeader  = errors.New("missing OPENQASM version header")
	ErrBadHeader = errors.New("unsupported OPENQASM version")
)

var (
	headerRe = regexp.MustCompile(`^OPENQASM\s+(\d+)(?:\.(\d+))?\s*;`)
	cregRe   = regexp.MustCompile(`\bcreg\s+([a-zA-Z]\w*)\s*\[\s*(\d+)\s*\]`)
)

// Register is a declared classical register.
type Register struct {
	Name  string
	Width int
}

// Circuit is a parsed circuit file.
type Circuit struct {
	Path      string
	Source    string
	Version   string
	Registers []Register
}

// Width is the total number of classical bits across all registers.
func (c Circuit) Width() int {
	w := 0
	for _, r := range c.Registers {
		w += r.Width
	}
	return w
}

// Register looks a register up by name.
func (c Circuit) Register(name string) (Register, bool) {
	for _, r := range c.Registers {
		if r.Name == name {
			return r, true
		}
	}
	return Register{}, false
}

// Read loads and parses the circuit at path. Any failure is a
// *apperr.TranslationError.
func Read(path string) (Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Circuit{}, apperr.NewTranslation(path, err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return Circuit{}, apperr.NewTranslation(path, err)
	}
	c.Path = path
	return c, nil
}

// Parse validates the OpenQASM 2 header and collects classical registers in
// declaration order. A redeclared register keeps its last width.
func Parse(src string) (Circuit, error) {
	body := stripComments(src)
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Circuit{}, ErrEmpty
	}

	m := headerRe.FindStringSubmatch(trimmed)
	if m == nil {
		return Circuit{}, ErrNoHeader
	}
	if m[1] != "2" {
		return Circuit{}, fmt.Errorf("%w: %s", ErrBadHeader, strings.TrimSuffix(m[0], ";"))
	}
	version := m[1]
	if m[2] != "" {
		version += "." + m[2]
	}

	c := Circuit{Source: src, Version: version}
	index := make(map[string]int)
	for _, match := range cregRe.FindAllStringSubmatch(body, -1) {
		width, err := strconv.Atoi(match[2])
		if err != nil {
			return Circuit{}, fmt.Errorf("creg %s: %w", match[1], err)
		}
		if i, ok := index[match[1]]; ok {
			c.Registers[i].Width = width
			continue
		}
		index[match[1]] = len(c.Registers)
		c.Registers = append(c.Registers, Register{Name: match[1], Width: width})
	}
	return c, nil
}

func stripComments(src string) string {
	lines := strings.Split(src, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}
