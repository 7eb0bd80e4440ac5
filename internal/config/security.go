package config

import (
	"fmt"
	"regexp"
	"strings"
)

// SensitivePattern represents a pattern that might indicate sensitive data
type SensitivePattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
}

// Patterns cover both Lua assignments (key = "value") and the YAML sync
// specs cloudquery reads (key: value), since both files pass through here.
var sensitivePatterns = []SensitivePattern{
	{
		Name:        "API Key",
		Pattern:     regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[a-zA-Z0-9_-]{15,}['"]?`),
		Description: "Potential API key detected",
	},
	{
		Name:        "Token",
		Pattern:     regexp.MustCompile(`(?i)(token|auth[_-]?token|access[_-]?token|bearer)\s*[:=]\s*['"]?[a-zA-Z0-9_.-]{15,}['"]?`),
		Description: "Potential authentication token detected",
	},
	{
		Name:        "Password",
		Pattern:     regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"].+['"]`),
		Description: "Potential password detected",
	},
	{
		Name:        "Secret",
		Pattern:     regexp.MustCompile(`(?i)(secret|secret[_-]?key|private[_-]?key)\s*[:=]\s*['"]?[a-zA-Z0-9_-]{15,}['"]?`),
		Description: "Potential secret key detected",
	},
	{
		Name:        "AWS Key",
		Pattern:     regexp.MustCompile(`(AKIA|ASIA)[0-9A-Z]{16}`),
		Description: "Potential AWS access key ID detected",
	},
	{
		Name:        "AWS Secret",
		Pattern:     regexp.MustCompile(`(?i)aws[_-]?secret[_-]?access[_-]?key\s*[:=]\s*['"]?[a-zA-Z0-9/+=]{30,}['"]?`),
		Description: "Potential AWS secret access key detected",
	},
	{
		Name:        "GitHub Token",
		Pattern:     regexp.MustCompile(`gh[ps]_[a-zA-Z0-9]{36,}`),
		Description: "Potential GitHub token detected",
	},
}

// SensitiveDataFinding represents a detected sensitive data instance
type SensitiveDataFinding struct {
	PatternName string
	Description string
	Line        int
	Preview     string // Redacted preview of the match
}

// DetectSensitiveData scans pipeline definition or sync spec content for
// potential hardcoded credentials. Findings are advisory: callers print a
// warning and continue.
func DetectSensitiveData(content string) []SensitiveDataFinding {
	var findings []SensitiveDataFinding
	lines := strings.Split(content, "\n")

	for lineNum, line := range lines {
		for _, pattern := range sensitivePatterns {
			if pattern.Pattern.MatchString(line) {
				findings = append(findings, SensitiveDataFinding{
					PatternName: pattern.Name,
					Description: pattern.Description,
					Line:        lineNum + 1, // 1-based line numbers
					Preview:     redactSensitiveValue(line),
				})
			}
		}
	}

	return findings
}

// redactSensitiveValue creates a redacted preview of a line with sensitive data
func redactSensitiveValue(line string) string {
	// Find the assignment separator (Lua "=" or YAML ":")
	sepIdx := strings.IndexAny(line, "=:")
	if sepIdx == -1 {
		// No separator; show a truncated prefix only
		if len(line) > 30 {
			return line[:30] + "... [REDACTED]"
		}
		return line + " [REDACTED]"
	}

	// Show the key part, redact the value
	keyPart := strings.TrimSpace(line[:sepIdx])
	return keyPart + " = [REDACTED]"
}

// FormatSensitiveDataWarning formats findings into a user-friendly warning message
func FormatSensitiveDataWarning(findings []SensitiveDataFinding) string {
	if len(findings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n⚠️  WARNING: Potential credentials detected\n\n")
	sb.WriteString("The following patterns may indicate hardcoded secrets:\n\n")

	for i, finding := range findings {
		sb.WriteString(fmt.Sprintf("%d. %s (line %d)\n", i+1, finding.Description, finding.Line))
		sb.WriteString(fmt.Sprintf("   Preview: %s\n\n", finding.Preview))
	}

	sb.WriteString("RECOMMENDATION:\n")
	sb.WriteString("• Keep credentials in the environment and reference them from the\n")
	sb.WriteString("  sync spec (CloudQuery expands ${VAR} at runtime)\n")
	sb.WriteString("• For values the child process needs, use sync.env in the pipeline\n")
	sb.WriteString("  definition rather than the spec file\n")
	sb.WriteString("• Never commit credentials next to the sync spec\n")

	return sb.String()
}
