package labs

// DiagnosisCategory is the derived clinical classification of a glucose test
// result. Numeric codes match the legacy records.
type DiagnosisCategory int

const (
	DiagnosisNonApplicable DiagnosisCategory = 0
	DiagnosisNormal        DiagnosisCategory = 1
	DiagnosisPrediabetes   DiagnosisCategory = 2
	DiagnosisDiabetes      DiagnosisCategory = 3
)

func (d DiagnosisCategory) String() string {
	switch d {
	case DiagnosisNormal:
		return "NORMAL"
	case DiagnosisPrediabetes:
		return "PREDIABETES"
	case DiagnosisDiabetes:
		return "DIABETES"
	}
	return "NONAPPLICABLE"
}

// Classify maps a test kind and result in mg/dL to a diagnosis category.
// Thresholds are inclusive lower bounds. The function is pure; it is called
// both when an order is created with a result and whenever a result is
// edited, and must give the same answer at both sites.
func Classify(kind TestKind, result int) DiagnosisCategory {
	switch kind {
	case TestOralTolerance:
		switch {
		case result < 140:
			return DiagnosisNormal
		case result < 200:
			return DiagnosisPrediabetes
		default:
			return DiagnosisDiabetes
		}
	case TestFastingBlood:
		switch {
		case result < 100:
			return DiagnosisNormal
		case result < 126:
			return DiagnosisPrediabetes
		default:
			return DiagnosisDiabetes
		}
	case TestGestational:
		// Gestational screening has no prediabetes tier.
		if result < 140 {
			return DiagnosisNormal
		}
		return DiagnosisDiabetes
	}
	return DiagnosisNonApplicable
}
