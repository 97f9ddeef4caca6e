package ir

// RegistryEntry is one row of the category or deliverable registry.
// Deliverable entries may reference their parent category.
type RegistryEntry struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	IsActive    bool   `json:"is_active"`
	CategoryKey string `json:"category_key,omitempty"`
}

// WorkspaceConfig is the per-workspace configuration supplied alongside the
// registries. Only the version participates in planning.
type WorkspaceConfig struct {
	Version string `json:"version" mapstructure:"version"`
	Name    string `json:"name,omitempty" mapstructure:"name"`
}

// Record is the commercial record (proposal or order) being planned.
type Record struct {
	URI          string `json:"uri"`
	Source       string `json:"source,omitempty"`
	Kind         string `json:"kind,omitempty"`
	Customer     string `json:"customer,omitempty"`
	IssuedAt     string `json:"issued_at,omitempty"`
	DueAt        string `json:"due_at,omitempty"`
	Currency     string `json:"currency,omitempty"`
	SnapshotHash string `json:"snapshot_hash"`
}

// LineItem is one item within a Record and the unit of classification.
// URI is unique within its record. A non-nil GroupKey ties the item to a
// shared context.
type LineItem struct {
	URI            string  `json:"uri"`
	RecordURI      string  `json:"record_uri"`
	CategoryKey    string  `json:"category_key"`
	DeliverableKey string  `json:"deliverable_key"`
	GroupKey       *string `json:"group_key"`
	Title          *string `json:"title"`
	Quantity       float64 `json:"quantity"`
	Position       int64   `json:"position"`
	ConfigJSON     string  `json:"config_json"`
}

// Workflow flag names accepted by rule flags_any predicates.
const (
	FlagRequiresDesign   = "requiresDesign"
	FlagRequiresApproval = "requiresApproval"
	FlagRequiresSamples  = "requiresSamples"
	FlagInstallRequired  = "installRequired"
	FlagDeliveryRequired = "deliveryRequired"
)

// FlagNames lists every workflow flag in declaration order.
var FlagNames = []string{
	FlagRequiresDesign,
	FlagRequiresApproval,
	FlagRequiresSamples,
	FlagInstallRequired,
	FlagDeliveryRequired,
}

// WorkflowFlags are the boolean workflow switches derived from a line item's
// configuration.
type WorkflowFlags struct {
	RequiresDesign   bool `json:"requiresDesign"`
	RequiresApproval bool `json:"requiresApproval"`
	RequiresSamples  bool `json:"requiresSamples"`
	InstallRequired  bool `json:"installRequired"`
	DeliveryRequired bool `json:"deliveryRequired"`
}

// Get returns the value of the named flag. ok is false for unknown names.
func (f WorkflowFlags) Get(name string) (value bool, ok bool) {
	switch name {
	case FlagRequiresDesign:
		return f.RequiresDesign, true
	case FlagRequiresApproval:
		return f.RequiresApproval, true
	case FlagRequiresSamples:
		return f.RequiresSamples, true
	case FlagInstallRequired:
		return f.InstallRequired, true
	case FlagDeliveryRequired:
		return f.DeliveryRequired, true
	default:
		return false, false
	}
}

// Union returns the flag-wise OR of f and other.
func (f WorkflowFlags) Union(other WorkflowFlags) WorkflowFlags {
	return WorkflowFlags{
		RequiresDesign:   f.RequiresDesign || other.RequiresDesign,
		RequiresApproval: f.RequiresApproval || other.RequiresApproval,
		RequiresSamples:  f.RequiresSamples || other.RequiresSamples,
		InstallRequired:  f.InstallRequired || other.InstallRequired,
		DeliveryRequired: f.DeliveryRequired || other.DeliveryRequired,
	}
}

// IsFlagName reports whether name is a known workflow flag.
func IsFlagName(name string) bool {
	_, ok := WorkflowFlags{}.Get(name)
	return ok
}

// WorkflowFacts are descriptive values passed through from configuration.
// Each is nil when absent. Deliverables is nil unless the source is a list.
type WorkflowFacts struct {
	WoodSpecies   any   `json:"woodSpecies"`
	Finish        any   `json:"finish"`
	Dimensions    any   `json:"dimensions"`
	Room          any   `json:"room"`
	RevisionLimit any   `json:"revisionLimit"`
	Deliverables  []any `json:"deliverables"`
}

// Classification is the immutable result of classifying one line item.
type Classification struct {
	CategoryKey    string         `json:"category_key"`
	DeliverableKey string         `json:"deliverable_key"`
	Flags          WorkflowFlags  `json:"flags"`
	Facts          WorkflowFacts  `json:"facts"`
	Confidence     float64        `json:"confidence"`
	Warnings       []string       `json:"warnings"`
	ParsedConfig   map[string]any `json:"parsed_config"`
}

// EnrichedLineItem is a line item with registry labels and its
// Classification attached. It is the unit that enters the plan input hash.
type EnrichedLineItem struct {
	LineItem
	CategoryLabel    *string        `json:"category_label"`
	DeliverableLabel *string        `json:"deliverable_label"`
	Classification   Classification `json:"classification"`
}

// GroupKind is the scope a context group represents.
type GroupKind string

// Context group kinds.
const (
	KindProject     GroupKind = "project"
	KindShared      GroupKind = "shared"
	KindDeliverable GroupKind = "deliverable"
)

// ValidGroupKinds is the set of accepted attach_to and scope values.
var ValidGroupKinds = map[GroupKind]bool{
	KindProject:     true,
	KindShared:      true,
	KindDeliverable: true,
}

// ContextGroup is a project, shared or deliverable scope with its member
// line items and the templates selected for it.
//
// LineItemURIs is a sorted, deduplicated set. The unexported-in-JSON fields
// carry the metadata rule predicates are evaluated against.
type ContextGroup struct {
	ID                 string    `json:"id"`
	Kind               GroupKind `json:"kind"`
	Title              string    `json:"title,omitempty"`
	LineItemURIs       []string  `json:"line_item_uris"`
	TemplateCandidates []string  `json:"template_candidates"`
	Warnings           []string  `json:"warnings"`

	GroupKey       *string       `json:"-"`
	CategoryKey    string        `json:"-"`
	DeliverableKey string        `json:"-"`
	Flags          WorkflowFlags `json:"-"`
}

// ContextKey returns the "<kind>::<id>" key used by the explainability index.
func (g *ContextGroup) ContextKey() string {
	return string(g.Kind) + "::" + g.ID
}

// Template is a reusable task definition attachable to a context group.
type Template struct {
	Key             string    `json:"key"`
	Title           string    `json:"title"`
	Kind            string    `json:"kind"`
	Scope           GroupKind `json:"scope"`
	CategoryKey     string    `json:"category_key,omitempty"`
	DeliverableKey  string    `json:"deliverable_key,omitempty"`
	DefaultPosition *int64    `json:"default_position,omitempty"`
	DefaultState    string    `json:"default_state"`
	IsActive        bool      `json:"is_active"`
}

// MatchCriteria is the predicate set of a rule. Empty strings, a nil slice
// and a nil pointer mean "not set".
type MatchCriteria struct {
	AttachTo        GroupKind `json:"attach_to"`
	CategoryKey     string    `json:"category_key,omitempty"`
	DeliverableKey  string    `json:"deliverable_key,omitempty"`
	FlagsAny        []string  `json:"flags_any,omitempty"`
	GroupKeyPresent *bool     `json:"group_key_present,omitempty"`
}

// Rule selects its template as a candidate for every group it matches.
//
// Rules loaded from storage carry their criteria as raw MatchJSON; the
// planner resolves it into Match before evaluation.
type Rule struct {
	ID          string        `json:"id"`
	TemplateKey string        `json:"template_key"`
	Priority    int64         `json:"priority"`
	IsActive    bool          `json:"is_active"`
	Match       MatchCriteria `json:"match"`
	MatchJSON   string        `json:"match_json,omitempty"`
}

// Match records that a rule selected a template for a context.
type Match struct {
	TemplateKey     string `json:"templateKey"`
	Title           string `json:"title,omitempty"`
	Kind            string `json:"kind,omitempty"`
	DefaultPosition *int64 `json:"default_position,omitempty"`
	RulePriority    int64  `json:"rulePriority"`
	RuleID          string `json:"ruleId"`
}

// Catalog is a compiled set of registries, templates and rules.
type Catalog struct {
	Categories   []RegistryEntry `json:"categories"`
	Deliverables []RegistryEntry `json:"deliverables"`
	Templates    []Template      `json:"templates"`
	Rules        []Rule          `json:"rules"`
}

// PlanInput is the hashed portion of a plan: the record and its enriched
// line items.
type PlanInput struct {
	Record    Record             `json:"record"`
	LineItems []EnrichedLineItem `json:"line_items"`
}

// PreviewBody holds the derived groups and the group-level warnings.
type PreviewBody struct {
	Groups   []ContextGroup `json:"groups"`
	Warnings []string       `json:"warnings"`
}

// Versions stamps the configuration and code versions a plan was built with.
type Versions struct {
	WorkspaceConfigVersion string `json:"workspace_config_version"`
	ClassifierVersion      string `json:"classifier_version"`
	PlannerVersion         string `json:"planner_version"`
}

// Debug carries the content-addressed identifiers of a plan.
type Debug struct {
	PlanID        string `json:"plan_id"`
	PlanInputHash string `json:"plan_input_hash"`
	SnapshotHash  string `json:"snapshot_hash"`
}

// PlanPreview is the terminal, read-only output of one planning run.
type PlanPreview struct {
	PlanInput                 PlanInput          `json:"plan_input"`
	Preview                   PreviewBody        `json:"plan_preview"`
	MatchedTemplatesByContext map[string][]Match `json:"matchedTemplatesByContext"`
	Versions                  Versions           `json:"versions"`
	ComputedAt                string             `json:"computed_at"`
	Debug                     Debug              `json:"debug"`
	Warnings                  []string           `json:"warnings"`
}
