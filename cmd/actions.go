package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/KaramelBytes/dashloom-cli/internal/dashboard"
	"github.com/KaramelBytes/dashloom-cli/internal/schema"
)

var (
	errUsage       = errors.New("usage")
	errCannotDrill = errors.New("chart has no drill-down column or is already drilled")
)

// execAction applies one interaction to s and returns a confirmation line.
// Chart and KPI indices are zero-based, as printed by the renderers.
func execAction(s *dashboard.Session, verb string, args []string) (string, error) {
	switch strings.ToLower(verb) {
	case "filter":
		key, val, err := splitAssignment(args)
		if err != nil {
			return "", fmt.Errorf("%w: filter <column|id>=<value>", errUsage)
		}
		if err := s.SetFilter(key, val); err != nil {
			return "", err
		}
		if val == "" {
			return fmt.Sprintf("filter %s cleared", key), nil
		}
		return fmt.Sprintf("filter %s = %s", key, val), nil
	case "unfilter":
		if len(args) != 1 {
			return "", fmt.Errorf("%w: unfilter <column|id>", errUsage)
		}
		if err := s.ClearFilter(args[0]); err != nil {
			return "", err
		}
		return fmt.Sprintf("filter %s cleared", args[0]), nil
	case "clear":
		s.ResetFilters()
		return "all filters cleared", nil
	case "agg":
		if len(args) != 2 {
			return "", fmt.Errorf("%w: agg <chart> <sum|avg|count>", errUsage)
		}
		i, err := parseIndex(args[0])
		if err != nil {
			return "", err
		}
		agg, ok := schema.ParseAggregation(args[1])
		if !ok {
			return "", fmt.Errorf("unknown aggregation %q (use sum, avg or count)", args[1])
		}
		if err := s.SetAggregation(i, agg); err != nil {
			return "", err
		}
		return fmt.Sprintf("chart %d aggregation = %s", i, agg), nil
	case "drill":
		if len(args) < 2 {
			return "", fmt.Errorf("%w: drill <chart> <category>", errUsage)
		}
		i, err := parseIndex(args[0])
		if err != nil {
			return "", err
		}
		name := strings.Join(args[1:], " ")
		ok, err := s.SelectCategory(i, name)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("chart %d: %w", i, errCannotDrill)
		}
		return fmt.Sprintf("chart %d drilled into %s", i, name), nil
	case "undrill":
		if len(args) != 1 {
			return "", fmt.Errorf("%w: undrill <chart>", errUsage)
		}
		i, err := parseIndex(args[0])
		if err != nil {
			return "", err
		}
		if err := s.ResetDrill(i); err != nil {
			return "", err
		}
		return fmt.Sprintf("chart %d drill reset", i), nil
	case "hover":
		return hover(s, args)
	case "unhover":
		s.ClearHover()
		return "tooltip cleared", nil
	}
	return "", fmt.Errorf("unknown command %q (type .help for commands)", verb)
}

// hover accepts "kpi 0", "x 1", "metric 1" or the compact "kpi:0".
func hover(s *dashboard.Session, args []string) (string, error) {
	if len(args) == 1 {
		args = strings.SplitN(args[0], ":", 2)
	}
	if len(args) != 2 {
		return "", fmt.Errorf("%w: hover <kpi|x|metric> <index>", errUsage)
	}
	i, err := parseIndex(args[1])
	if err != nil {
		return "", err
	}
	switch strings.ToLower(args[0]) {
	case "kpi":
		err = s.HoverKPI(i)
	case "x", "dim", "dimension":
		err = s.HoverDimension(i)
	case "metric", "y":
		err = s.HoverMetric(i)
	default:
		return "", fmt.Errorf("%w: hover <kpi|x|metric> <index>", errUsage)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("hovering %s %d", strings.ToLower(args[0]), i), nil
}

// splitAssignment accepts "key=value..." or "key value...". An empty value is allowed.
func splitAssignment(args []string) (string, string, error) {
	if len(args) == 0 {
		return "", "", errUsage
	}
	if k, v, ok := strings.Cut(args[0], "="); ok {
		if k == "" {
			return "", "", errUsage
		}
		return k, strings.Join(append([]string{v}, args[1:]...), " "), nil
	}
	if len(args) < 2 {
		return "", "", errUsage
	}
	return args[0], strings.Join(args[1:], " "), nil
}

// actionArgs splits the text following a verb into arguments. Values that may
// contain spaces (a filter value, a drill category) keep their exact spacing.
func actionArgs(verb, rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}
	switch strings.ToLower(verb) {
	case "filter":
		head, tail := cutField(rest)
		if strings.Contains(head, "=") {
			return []string{rest}
		}
		if tail == "" {
			return []string{head}
		}
		return []string{head, tail}
	case "drill":
		head, tail := cutField(rest)
		if tail == "" {
			return []string{head}
		}
		return []string{head, tail}
	}
	return strings.Fields(rest)
}

// cutField splits s at its first run of whitespace.
func cutField(s string) (string, string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return i, nil
}
