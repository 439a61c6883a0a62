package domain

// TargetKind says where an injectable field lives.
type TargetKind string

const (
	TargetParam      TargetKind = "param"
	TargetJSON       TargetKind = "json"
	TargetFormData   TargetKind = "form-data"
	TargetURLEncoded TargetKind = "urlencoded"
	TargetRaw        TargetKind = "raw"
)

// RawBodyField is the name of the synthetic target covering a whole non-JSON raw body.
const RawBodyField = "body"

// TargetField is one injectable location of a profile.
// JSON names are dot-joined key paths ("user.name").
type TargetField struct {
	Name  string
	Kind  TargetKind
	Label string
}

// InBody reports whether the target lives in the request body.
func (t TargetField) InBody() bool {
	return t.Kind != TargetParam
}
