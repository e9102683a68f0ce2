package generation

import (
	"strings"

	"github.com/complyforge/complyforge/ai/provider"
	"github.com/complyforge/complyforge/errors"
)

// Template is a document blueprint instantiated once per generation unit.
// RequiredSections drive both the generation prompt and the optional
// cross-validation pass.
type Template struct {
	ID               string
	Title            string
	Category         provider.DocumentCategory
	RequiredSections []string
}

// frameworkTemplates maps an upper-cased framework name to its required
// document templates. Units are generated in this order.
var frameworkTemplates = map[string][]Template{
	"SOC2": {
		{
			ID:       "soc2-infosec-policy",
			Title:    "Information Security Policy",
			Category: provider.CategoryPolicy,
			RequiredSections: []string{
				"Purpose", "Scope", "Roles and Responsibilities",
				"Access Control", "Incident Response", "Policy Review",
			},
		},
		{
			ID:       "soc2-change-management",
			Title:    "Change Management Procedure",
			Category: provider.CategoryProcedure,
			RequiredSections: []string{
				"Purpose", "Change Request Process", "Approval",
				"Testing", "Rollback", "Emergency Changes",
			},
		},
		{
			ID:       "soc2-system-description",
			Title:    "System Description",
			Category: provider.CategoryNarrative,
			RequiredSections: []string{
				"Company Overview", "Services Provided", "System Components",
				"Trust Services Criteria", "Control Environment",
			},
		},
	},
	"ISO27001": {
		{
			ID:       "iso27001-isms-scope",
			Title:    "ISMS Scope Statement",
			Category: provider.CategoryPolicy,
			RequiredSections: []string{
				"Scope Definition", "Boundaries", "Interfaces and Dependencies",
				"Exclusions", "Justification",
			},
		},
		{
			ID:       "iso27001-risk-assessment",
			Title:    "Risk Assessment Methodology",
			Category: provider.CategoryAssessment,
			RequiredSections: []string{
				"Risk Identification", "Risk Analysis", "Risk Evaluation",
				"Risk Treatment", "Acceptance Criteria",
			},
		},
		{
			ID:       "iso27001-soa",
			Title:    "Statement of Applicability",
			Category: provider.CategoryTechnical,
			RequiredSections: []string{
				"Control Selection", "Annex A Controls", "Implementation Status",
				"Justification for Exclusions",
			},
		},
		{
			ID:       "iso27001-access-control",
			Title:    "Access Control Policy",
			Category: provider.CategoryPolicy,
			RequiredSections: []string{
				"Purpose", "User Access Management", "Privileged Access",
				"Access Review", "Remote Access",
			},
		},
	},
	"HIPAA": {
		{
			ID:       "hipaa-privacy-policy",
			Title:    "Privacy Policy",
			Category: provider.CategoryPolicy,
			RequiredSections: []string{
				"Purpose", "Protected Health Information", "Permitted Uses",
				"Patient Rights", "Complaints",
			},
		},
		{
			ID:       "hipaa-security-risk-analysis",
			Title:    "Security Risk Analysis",
			Category: provider.CategoryAssessment,
			RequiredSections: []string{
				"Asset Inventory", "Threat Identification", "Vulnerability Assessment",
				"Risk Determination", "Remediation Plan",
			},
		},
		{
			ID:       "hipaa-breach-notification",
			Title:    "Breach Notification Procedure",
			Category: provider.CategoryProcedure,
			RequiredSections: []string{
				"Breach Definition", "Discovery and Assessment", "Notification Timeline",
				"Notification Content", "Documentation",
			},
		},
	},
	"GDPR": {
		{
			ID:       "gdpr-privacy-notice",
			Title:    "Privacy Notice",
			Category: provider.CategoryNarrative,
			RequiredSections: []string{
				"Data Controller Identity", "Processing Purposes", "Legal Basis",
				"Data Subject Rights", "Retention Periods", "International Transfers",
			},
		},
		{
			ID:       "gdpr-dpia",
			Title:    "Data Protection Impact Assessment",
			Category: provider.CategoryAssessment,
			RequiredSections: []string{
				"Processing Description", "Necessity and Proportionality",
				"Risk Assessment", "Mitigation Measures", "Consultation",
			},
		},
		{
			ID:       "gdpr-data-retention",
			Title:    "Data Retention Policy",
			Category: provider.CategoryPolicy,
			RequiredSections: []string{
				"Purpose", "Retention Schedule", "Deletion Procedures",
				"Legal Holds", "Review",
			},
		},
	},
}

// TemplatesForFramework resolves a framework's required document
// templates. Framework names are case-insensitive.
func TemplatesForFramework(framework string) ([]Template, error) {
	templates, ok := frameworkTemplates[strings.ToUpper(framework)]
	if !ok {
		return nil, errors.Newf("unknown framework: %s", framework)
	}
	return templates, nil
}

// SupportedFrameworks returns the framework names with template catalogs.
func SupportedFrameworks() []string {
	names := make([]string, 0, len(frameworkTemplates))
	for name := range frameworkTemplates {
		names = append(names, name)
	}
	return names
}

// EstimateTotalDocuments returns the unit count for a framework list, or
// an error naming the first unsupported framework.
func EstimateTotalDocuments(frameworks []string) (int, error) {
	total := 0
	for _, fw := range frameworks {
		templates, err := TemplatesForFramework(fw)
		if err != nil {
			return 0, err
		}
		total += len(templates)
	}
	return total, nil
}
