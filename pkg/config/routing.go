package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v2"

	"github.com/adascal/voicedesk/pkg/dispatch"
)

type routingFile struct {
	Shops []struct {
		Name      string   `yaml:"name"`
		AllDay    []string `yaml:"all_day"`
		Morning   []string `yaml:"morning"`
		Afternoon []string `yaml:"afternoon"`
		Fallback  []string `yaml:"fallback"`
	} `yaml:"shops"`
	Restrictions []struct {
		Technician string   `yaml:"technician"`
		Window     string   `yaml:"window"`
		ExemptDays []string `yaml:"exempt_days"`
	} `yaml:"restrictions"`
}

// LoadRouting reads the shop routing table and technician restrictions
// from YAML.
func LoadRouting(path string) (map[string]dispatch.Routing, []dispatch.Restriction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read routing file: %w", err)
	}
	return ParseRouting(data)
}

// ParseRouting decodes a routing table document.
func ParseRouting(data []byte) (map[string]dispatch.Routing, []dispatch.Restriction, error) {
	var f routingFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse routing yaml: %w", err)
	}

	routes := make(map[string]dispatch.Routing, len(f.Shops))
	for _, s := range f.Shops {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("routing shop with empty name")
		}
		routes[name] = dispatch.Routing{
			AllDay:    s.AllDay,
			Morning:   s.Morning,
			Afternoon: s.Afternoon,
			Fallback:  s.Fallback,
		}
	}

	var restrictions []dispatch.Restriction
	for _, r := range f.Restrictions {
		tech := strings.TrimSpace(r.Technician)
		if tech == "" {
			return nil, nil, fmt.Errorf("restriction with empty technician")
		}
		window, err := parseWindow(r.Window)
		if err != nil {
			return nil, nil, fmt.Errorf("restriction for %s: %w", tech, err)
		}
		exempt := make(map[time.Weekday]bool, len(r.ExemptDays))
		for _, d := range r.ExemptDays {
			wd, err := parseWeekday(d)
			if err != nil {
				return nil, nil, fmt.Errorf("restriction for %s: %w", tech, err)
			}
			exempt[wd] = true
		}
		restrictions = append(restrictions, dispatch.Restriction{
			Technician: tech,
			Window:     window,
			ExemptDays: exempt,
		})
	}
	return routes, restrictions, nil
}

func parseWindow(s string) (dispatch.Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "morning":
		return dispatch.WindowMorning, nil
	case "afternoon":
		return dispatch.WindowAfternoon, nil
	case "off_hours":
		return dispatch.WindowOffHours, nil
	default:
		return "", fmt.Errorf("unknown window %q", s)
	}
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
}
