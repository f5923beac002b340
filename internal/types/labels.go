package types

// Task status codes used by the CRM
const (
	StatusNotStarted int64 = 1
	StatusInProgress int64 = 2
	StatusWaiting    int64 = 3
	StatusDone       int64 = 4
	StatusPostponed  int64 = 5
)

// Status labels as shown on the dashboard
const (
	LabelNotStarted = "Belum Dimulai"
	LabelInProgress = "Dalam Proses"
	LabelWaiting    = "Menunggu"
	LabelDone       = "Selesai"
	LabelPostponed  = "Ditunda"
)

// Conversion stage labels
const (
	StageLeadEngaged       = "Lead Engaged"
	StageProspect          = "Prospect"
	StageMeetingNeed       = "Meeting Need"
	StageProposalSubmitted = "Proposal Submitted"
	StagePresentation      = "Presentation"
	StageDeal              = "Deal"
	StageInvoice           = "Invoice"
)

var statusLabels = map[int64]string{
	StatusNotStarted: LabelNotStarted,
	StatusInProgress: LabelInProgress,
	StatusWaiting:    LabelWaiting,
	StatusDone:       LabelDone,
	StatusPostponed:  LabelPostponed,
}

var statusOrder = []int64{StatusNotStarted, StatusInProgress, StatusWaiting, StatusDone, StatusPostponed}

var conversionLabels = map[int64]string{
	3866814: StageLeadEngaged,
	3866815: StageProspect,
	3866816: StageMeetingNeed,
	3866817: StageProposalSubmitted,
	3866818: StagePresentation,
	3866819: StageDeal,
	3866820: StageInvoice,
}

var conversionOrder = []int64{3866814, 3866815, 3866816, 3866817, 3866818, 3866819, 3866820}

var statusColors = map[string]string{
	LabelDone:       "#10B981",
	LabelInProgress: "#9CA3AF",
	LabelNotStarted: "#4B5563",
	LabelWaiting:    "#5DADE2",
	LabelPostponed:  "#BDC3C7",
}

// StatusLabel maps a status code to its label. Unparsed or unmapped codes
// yield UnknownLabel.
func StatusLabel(code NullInt) Label {
	return lookup(statusLabels, code)
}

// ConversionLabel maps a conversion stage code to its label. Unparsed or
// unmapped codes yield UnknownLabel.
func ConversionLabel(code NullInt) Label {
	return lookup(conversionLabels, code)
}

func lookup(table map[int64]string, code NullInt) Label {
	if !code.Valid {
		return UnknownLabel
	}
	name, ok := table[code.Int64]
	if !ok {
		return UnknownLabel
	}
	return Label{Name: name, Known: true}
}

// StatusLabels returns every status label in code order
func StatusLabels() []string {
	out := make([]string, 0, len(statusOrder))
	for _, code := range statusOrder {
		out = append(out, statusLabels[code])
	}
	return out
}

// ConversionStages returns every conversion stage label in pipeline order
func ConversionStages() []string {
	out := make([]string, 0, len(conversionOrder))
	for _, code := range conversionOrder {
		out = append(out, conversionLabels[code])
	}
	return out
}

// IsConversionStage reports whether name is a known conversion stage label
func IsConversionStage(name string) bool {
	for _, label := range conversionLabels {
		if label == name {
			return true
		}
	}
	return false
}

// IsStatusLabel reports whether name is a known status label
func IsStatusLabel(name string) bool {
	for _, label := range statusLabels {
		if label == name {
			return true
		}
	}
	return false
}

// StatusColors returns the chart colour for each status label
func StatusColors() map[string]string {
	out := make(map[string]string, len(statusColors))
	for k, v := range statusColors {
		out[k] = v
	}
	return out
}
