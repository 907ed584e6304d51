package main

import "loupe"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIPin is a JSON-friendly pin representation.
type CLIPin struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Path       string `json:"path"`
	Namespace  string `json:"namespace,omitempty"`
	Scope      string `json:"scope,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	ReturnType string `json:"return_type,omitempty"`
	Docs       string `json:"docs,omitempty"`
	File       string `json:"file,omitempty"`
	StartLine  int    `json:"start_line"`
	StartCol   int    `json:"start_col"`
	EndLine    int    `json:"end_line"`
	EndCol     int    `json:"end_col"`
}

// CLILocation is a JSON-friendly location.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIDiagnostic is a JSON-friendly diagnostic finding.
type CLIDiagnostic struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
	Severity  string `json:"severity"`
	Rule      string `json:"rule"`
	Message   string `json:"message"`
}

// pinToCLI converts a loupe.Pin to a CLIPin.
func pinToCLI(p *loupe.Pin) CLIPin {
	return CLIPin{
		Name:       p.Name,
		Kind:       p.Kind.String(),
		Path:       p.Path,
		Namespace:  p.Namespace,
		Scope:      p.Scope.String(),
		Visibility: p.Visibility.String(),
		ReturnType: p.ReturnType,
		Docs:       p.Docs,
		File:       p.Location.Filename,
		StartLine:  p.Location.Range.Start.Line,
		StartCol:   p.Location.Range.Start.Col,
		EndLine:    p.Location.Range.End.Line,
		EndCol:     p.Location.Range.End.Col,
	}
}

func pinsToCLI(pins []*loupe.Pin) []CLIPin {
	out := make([]CLIPin, 0, len(pins))
	for _, p := range pins {
		out = append(out, pinToCLI(p))
	}
	return out
}

// locationToCLI converts a loupe.Location to a CLILocation.
func locationToCLI(loc loupe.Location) CLILocation {
	return CLILocation{
		File:      loc.Filename,
		StartLine: loc.Range.Start.Line,
		StartCol:  loc.Range.Start.Col,
		EndLine:   loc.Range.End.Line,
		EndCol:    loc.Range.End.Col,
	}
}

func locationsToCLI(locs []loupe.Location) []CLILocation {
	out := make([]CLILocation, 0, len(locs))
	for _, loc := range locs {
		out = append(out, locationToCLI(loc))
	}
	return out
}

// diagnosticToCLI converts a loupe.Diagnostic to a CLIDiagnostic.
func diagnosticToCLI(d loupe.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{
		File:      d.Location.Filename,
		StartLine: d.Location.Range.Start.Line,
		StartCol:  d.Location.Range.Start.Col,
		EndLine:   d.Location.Range.End.Line,
		EndCol:    d.Location.Range.End.Col,
		Severity:  string(d.Severity),
		Rule:      d.Rule,
		Message:   d.Message,
	}
}
