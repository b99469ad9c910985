package domain

// MetadataField names one recognized header row of a bead-array export.
// The value is the label as it appears in the first column.
type MetadataField string

const (
	FieldProgram                   MetadataField = "Program"
	FieldBuild                     MetadataField = "Build"
	FieldDate                      MetadataField = "Date"
	FieldSN                        MetadataField = "SN"
	FieldSession                   MetadataField = "Session"
	FieldOperator                  MetadataField = "Operator"
	FieldTemplateID                MetadataField = "TemplateID"
	FieldTemplateName              MetadataField = "TemplateName"
	FieldTemplateVersion           MetadataField = "TemplateVersion"
	FieldTemplateDescription       MetadataField = "TemplateDescription"
	FieldTemplateDevelopingCompany MetadataField = "TemplateDevelopingCompany"
	FieldTemplateAuthor            MetadataField = "TemplateAuthor"
	FieldSampleVolume              MetadataField = "SampleVolume"
	FieldDDGate                    MetadataField = "DDGate"
	FieldSampleTimeout             MetadataField = "SampleTimeout"
	FieldBatchAuthor               MetadataField = "BatchAuthor"
	FieldBatchStartTime            MetadataField = "BatchStartTime"
	FieldBatchStopTime             MetadataField = "BatchStopTime"
	FieldBatchDescription          MetadataField = "BatchDescription"
	FieldBatchComment              MetadataField = "BatchComment"
)

// MetadataFields lists every recognized field in the order the vendor writes them.
var MetadataFields = []MetadataField{
	FieldProgram,
	FieldBuild,
	FieldDate,
	FieldSN,
	FieldSession,
	FieldOperator,
	FieldTemplateID,
	FieldTemplateName,
	FieldTemplateVersion,
	FieldTemplateDescription,
	FieldTemplateDevelopingCompany,
	FieldTemplateAuthor,
	FieldSampleVolume,
	FieldDDGate,
	FieldSampleTimeout,
	FieldBatchAuthor,
	FieldBatchStartTime,
	FieldBatchStopTime,
	FieldBatchDescription,
	FieldBatchComment,
}

// MetadataValue is the content of a header row after its label.
type MetadataValue struct {
	Value string   `json:"value"`
	Extra []string `json:"extra,omitempty"`
}

// TemplateIdentity identifies the assay template a run was acquired with.
// Documents built from different templates are not merged unless forced.
type TemplateIdentity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}
