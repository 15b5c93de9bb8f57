package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RepeatUnitSet stores repeat unit definitions by name.
type RepeatUnitSet struct {
	units map[string]RepeatUnit
}

// DefaultRepeatUnits returns a set containing the built-in units
// (CH2, H2O, CO2, NH3).
func DefaultRepeatUnits() *RepeatUnitSet {
	s := &RepeatUnitSet{units: make(map[string]RepeatUnit)}
	for _, u := range builtinRepeatUnits {
		s.units[u.Name] = u
	}
	return s
}

// Get looks up a repeat unit by name (case-insensitive).
func (s *RepeatUnitSet) Get(name string) (RepeatUnit, bool) {
	for k, u := range s.units {
		if strings.EqualFold(k, name) {
			return u, true
		}
	}
	return RepeatUnit{}, false
}

// Names returns the defined unit names.
func (s *RepeatUnitSet) Names() []string {
	names := make([]string, 0, len(s.units))
	for k := range s.units {
		names = append(names, k)
	}
	return names
}

// LoadFromCSV merges repeat units from a CSV file (format: name,nominal,exact).
// Existing names are overridden, so a custom file can retune a built-in unit.
func (s *RepeatUnitSet) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	if scanner.Scan() {
		// header line
	}

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			return fmt.Errorf("line %d: invalid format, expected name,nominal,exact", lineNum)
		}

		name := strings.TrimSpace(parts[0])
		nominal, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid nominal mass '%s': %w", lineNum, parts[1], err)
		}
		exact, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid exact mass '%s': %w", lineNum, parts[2], err)
		}
		if exact <= 0 || nominal <= 0 {
			return fmt.Errorf("line %d: masses must be positive", lineNum)
		}

		s.units[name] = RepeatUnit{Name: name, Nominal: nominal, Exact: exact}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}
