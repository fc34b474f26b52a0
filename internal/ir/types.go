package ir

// Language identifies the source language of a scanned file.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// LanguageForExt maps a lowercase file extension (with dot) to its language.
// Unsupported extensions return false.
func LanguageForExt(ext string) (Language, bool) {
	switch ext {
	case ".go":
		return LangGo, true
	case ".js", ".jsx", ".ts", ".tsx":
		return LangJavaScript, true
	case ".py":
		return LangPython, true
	case ".rs":
		return LangRust, true
	default:
		return "", false
	}
}

// RequirementSource distinguishes externally supplied requirements from
// pipeline-synthesized ones.
const (
	SourceExternal    = "external"
	SourceSynthesized = "synthesized"
	SourceDerived     = "derived"
)

// LogicType classifies the control-flow decision an LLR describes.
type LogicType string

const (
	LogicBranch         LogicType = "branch"
	LogicLoop           LogicType = "loop"
	LogicErrorHandler   LogicType = "error_handler"
	LogicValidation     LogicType = "validation"
	LogicComputation    LogicType = "computation"
	LogicStateTransition LogicType = "state_transition"
	LogicInitialization LogicType = "initialization"
	LogicOther          LogicType = "other"
)

// HLRCategory is the requirement category of an HLR.
type HLRCategory string

const (
	CategoryFunctional  HLRCategory = "functional"
	CategoryPerformance HLRCategory = "performance"
	CategoryInterface   HLRCategory = "interface"
	CategorySafety      HLRCategory = "safety"
)

// TestType is the level at which a test case exercises an HLR.
type TestType string

const (
	TestIntegration TestType = "integration"
	TestSystem      TestType = "system"
	TestAcceptance  TestType = "acceptance"
	TestRegression  TestType = "regression"
	TestSafety      TestType = "safety"
)

// PassFail is the recorded execution status of a test case.
type PassFail string

const (
	ResultNotRun PassFail = "NOT_RUN"
	ResultPass   PassFail = "PASS"
	ResultFail   PassFail = "FAIL"
)

// SystemRequirement is the root of the traceability chain. Source is
// SourceExternal for operator-supplied requirements and SourceSynthesized
// for requirements the clusterer generates per behavioral domain.
type SystemRequirement struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// SourceUnit is one declared function, method, or type found by the scanner.
// ID is derived from (path, unit name, start line) so re-scanning an
// unchanged tree upserts rather than duplicates.
type SourceUnit struct {
	ID        string   `json:"id"`
	Path      string   `json:"path"`
	Language  Language `json:"language"`
	UnitName  string   `json:"unit_name"`
	LineStart int      `json:"line_start"`
	LineEnd   int      `json:"line_end"`
	LineCount int      `json:"line_count"`
	HasLLR    bool     `json:"has_llr"`
	ParentHLR string   `json:"parent_hlr,omitempty"`
}

// LowLevelRequirement states one control-flow decision at pseudocode level.
// TraceToCode is a path:line or path:start-end reference into the scanned
// tree. Every LLR has exactly one parent HLR.
type LowLevelRequirement struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	ParentHLR   string    `json:"parent_hlr"`
	Source      string    `json:"source"`
	LogicType   LogicType `json:"logic_type"`
	TraceToCode string    `json:"trace_to_code"`
}

// HighLevelRequirement is an implementation-agnostic, quantitative statement
// of a software capability. ParentSys must be non-empty once the clusterer
// has run; DerivationRationale is required when IsDerived is set.
type HighLevelRequirement struct {
	ID                  string      `json:"id"`
	Text                string      `json:"text"`
	Source              string      `json:"source"`
	ParentSys           string      `json:"parent_sys,omitempty"`
	AllocatedTo         string      `json:"allocated_to,omitempty"`
	IsDerived           bool        `json:"is_derived"`
	DerivationRationale string      `json:"derivation_rationale,omitempty"`
	Category            HLRCategory `json:"category"`
}

// TestCase verifies one HLR. Procedure is an ordered newline-separated step
// list; PassCriteria is quantitative wherever the HLR carries a tolerance.
// TestScriptRef binds the row to its generated runnable skeleton.
type TestCase struct {
	ID             string   `json:"id"`
	ParentHLR      string   `json:"parent_hlr"`
	TestType       TestType `json:"test_type"`
	Description    string   `json:"description"`
	Procedure      string   `json:"procedure"`
	InputData      string   `json:"input_data"`
	ExpectedOutput string   `json:"expected_output"`
	PassCriteria   string   `json:"pass_criteria"`
	TestScriptRef  string   `json:"test_script_ref,omitempty"`
	PassFail       PassFail `json:"pass_fail"`
}

// ArchCategory classifies an architecture decision.
type ArchCategory string

const (
	ArchPartitioning ArchCategory = "partitioning"
	ArchScheduling   ArchCategory = "scheduling"
	ArchInterface    ArchCategory = "interface"
	ArchResource     ArchCategory = "resource"
	ArchSafety       ArchCategory = "safety"
	ArchDataFlow     ArchCategory = "data_flow"
	ArchControlFlow  ArchCategory = "control_flow"
	ArchOther        ArchCategory = "other"
)

// ArchitectureDecision records a structural decision derived from the
// dependency graph. ParentHLR is empty when the decision is not attributable
// to a single capability.
type ArchitectureDecision struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Rationale   string       `json:"rationale"`
	ParentHLR   string       `json:"parent_hlr,omitempty"`
	Category    ArchCategory `json:"category"`
}

// DocumentSection is one ordered section of the design document. Content
// may contain reference markers resolved by the renderer.
type DocumentSection struct {
	ID            string `json:"id"`
	SectionNumber string `json:"section_number"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	SortOrder     int    `json:"sort_order"`
}

// UnclusteredHLR is the placeholder parent the deriver assigns to fresh
// LLRs. The clusterer re-parents those LLRs and deletes the placeholder
// once it is empty.
const UnclusteredHLR = "HLR_UNCLUSTERED"
