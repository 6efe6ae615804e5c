package report

import "fmt"

// Context budgets per report kind, in characters of prompt input.
const (
	briefDashboardMax = 3000
	briefDocsMax      = 4000
	fullDashboardMax  = 5000
	fullDocsMax       = 8000
)

// DocsBudget returns the document-context budget for a report kind.
func DocsBudget(kind Kind) int {
	if kind == KindComprehensive {
		return fullDocsMax
	}
	return briefDocsMax
}

// buildPrompt assembles the full generation prompt for a member report.
func buildPrompt(m Member, kind Kind, docContext, dashboardContext string) string {
	if kind == KindComprehensive {
		return buildComprehensivePrompt(m, docContext, dashboardContext)
	}
	return buildBriefPrompt(m, docContext, dashboardContext)
}

func buildBriefPrompt(m Member, docContext, dashboardContext string) string {
	return fmt.Sprintf(`You are Document Master, an AI report generator for the Illinois Department of Transportation Dashboard.

Generate a POLICY BRIEF (1-2 pages) for the following member.

MEMBER INFORMATION:
- ID: %s
- Name: %s
- Party: %s
- Area: %s

DASHBOARD DATA:
%s

RELEVANT DOCUMENTS:
%s

INSTRUCTIONS:
Generate a concise policy brief with these sections:
1. EXECUTIVE SUMMARY - 2-3 sentence overview
2. KEY FINDINGS - bullet points of most important facts
3. POLICY REFERENCES - relevant policies, bills, and compliance status
4. RECOMMENDATION - 1-2 sentence action item

Format the output as a clean text report with clear section headers.
Include the member name and date at the top.
Be specific - cite actual data from the context provided, and prefer
GOLD SOURCE material over archive material when they disagree.
If data is missing, note "Data pending" rather than making things up.
`,
		m.ID, m.Name, m.Party, m.Area,
		truncate(dashboardContext, briefDashboardMax),
		truncate(docContext, briefDocsMax))
}

func buildComprehensivePrompt(m Member, docContext, dashboardContext string) string {
	return fmt.Sprintf(`You are Document Master, an AI report generator for the Illinois Department of Transportation Dashboard.

Generate a COMPREHENSIVE REPORT (10+ pages) for the following member.

MEMBER INFORMATION:
- ID: %s
- Name: %s
- Party: %s
- Area: %s

DASHBOARD DATA:
%s

RELEVANT DOCUMENTS:
%s

INSTRUCTIONS:
Generate an exhaustive comprehensive report with ALL of these sections:

1. EXECUTIVE SUMMARY - Full overview with confidence scores
2. MEMBER PROFILE & HISTORY - Complete background
3. POLICY COMPLIANCE AUDIT - Every relevant policy checked
4. FEDERAL FUNDING ANALYSIS - Formula allocations, grants, per-capita comparisons
5. TRANSPORTATION INFRASTRUCTURE - Road events, construction, closures in district
6. LEGISLATIVE ACTIVITY - Bills sponsored, committee work, voting record
7. RISK ASSESSMENT MATRIX - Rate each area: LOW / MEDIUM / HIGH
8. COMPARATIVE ANALYSIS - How this district/member compares to peers
9. HISTORICAL TIMELINE - Key events chronologically
10. DOCUMENT CROSS-REFERENCE - Which source docs informed each section
11. RECOMMENDATIONS & ACTION ITEMS - Specific next steps with priorities
12. APPENDIX - Source document list with dates

Format as a professional report with:
- A TABLE OF CONTENTS at the top
- Clear headers for major sections and subsections
- Be exhaustive. Use ALL available data.
- Weigh GOLD SOURCE material above archive material when they disagree.
- If data is missing for a section, note "DATA PENDING - requires [specific source]"
`,
		m.ID, m.Name, m.Party, m.Area,
		truncate(dashboardContext, fullDashboardMax),
		truncate(docContext, fullDocsMax))
}
