package analyzer

import (
	"regexp"
	"sort"
)

// Category keys map to canonical display labels plus the colloquial trigger
// phrases users actually type. Order matters: the first key with a phrase hit
// wins.
type categoryDef struct {
	Key     string
	Label   string
	Phrases []string
}

var categoryTable = []categoryDef{
	{
		Key:     "lab-result",
		Label:   "Lab Results",
		Phrases: []string{"blood work", "blood test", "test results", "test result", "lab results", "labs", "lab"},
	},
	{
		Key:     "prescription",
		Label:   "Prescriptions",
		Phrases: []string{"prescriptions", "prescription", "medications", "medication", "meds", "rx"},
	},
	{
		Key:     "imaging-report",
		Label:   "Imaging Reports",
		Phrases: []string{"ct scan", "x-rays", "x-ray", "xray", "mri", "ultrasound", "imaging", "scans", "scan"},
	},
	{
		Key:     "doctor-note",
		Label:   "Doctor Notes",
		Phrases: []string{"doctor's notes", "doctor's note", "doctor notes", "doctor note", "visit notes", "visit note", "consultation"},
	},
	{
		Key:     "vaccination",
		Label:   "Vaccinations",
		Phrases: []string{"vaccinations", "vaccination", "vaccines", "vaccine", "immunizations", "immunization", "shots"},
	},
	{
		Key:     "other",
		Label:   "Other",
		Phrases: []string{"other documents", "misc documents"},
	},
}

// synonymDict maps a base term to its clinical and colloquial equivalents.
// Multi-word keys are matched before their substrings (see synonymKeys).
var synonymDict = map[string][]string{
	"blood pressure": {"bp", "hypertension"},
	"blood sugar":    {"glucose", "a1c", "hba1c"},
	"blood count":    {"cbc", "hemogram", "complete blood count"},
	"cholesterol":    {"lipid panel", "lipid", "ldl", "hdl", "triglycerides"},
	"blood":          {"cbc", "hemogram"},
	"vaccine":        {"vaccination", "immunization", "shot"},
	"medication":     {"medicine", "drug", "prescription"},
	"doctor":         {"physician", "provider"},
	"heart":          {"cardiac", "cardiology", "ekg", "ecg"},
	"kidney":         {"renal", "creatinine"},
	"liver":          {"hepatic", "alt", "ast"},
	"thyroid":        {"tsh", "t4"},
	"diabetes":       {"diabetic", "glucose", "a1c"},
	"allergy":        {"allergies", "allergen"},
	"pregnancy":      {"prenatal", "obstetric"},
	"flu":            {"influenza"},
	"covid":          {"coronavirus", "sars-cov-2"},
	"xray":           {"x-ray", "radiograph"},
	"cancer":         {"oncology", "tumor", "biopsy"},
	"bone":           {"fracture", "orthopedic"},
}

// synonymKeys is synonymDict's keys sorted longest-first, built once at
// startup so matching never re-sorts per call.
var synonymKeys []string

var stopWords = []string{
	"give me", "what", "when", "how", "should", "explain", "show", "list",
	"find", "get", "display", "summarize", "summary", "overview", "my",
	"the", "a", "an", "is", "are", "was", "were",
}

var questionWords = []string{
	"what", "when", "where", "why", "how", "who", "which",
	"is", "are", "do", "does", "can", "should",
}

var actionWords = []string{
	"show", "list", "find", "get", "display", "give me",
	"summarize", "summary", "overview", "explain",
}

var (
	stopWordPatterns   []*regexp.Regexp
	actionWordPatterns []*regexp.Regexp
)

func init() {
	synonymKeys = make([]string, 0, len(synonymDict))
	for key := range synonymDict {
		synonymKeys = append(synonymKeys, key)
	}
	sort.Slice(synonymKeys, func(i, j int) bool {
		if len(synonymKeys[i]) != len(synonymKeys[j]) {
			return len(synonymKeys[i]) > len(synonymKeys[j])
		}
		return synonymKeys[i] < synonymKeys[j]
	})

	for i := range categoryTable {
		phrases := categoryTable[i].Phrases
		sort.Slice(phrases, func(a, b int) bool {
			return len(phrases[a]) > len(phrases[b])
		})
	}

	stopWordPatterns = make([]*regexp.Regexp, len(stopWords))
	for i, w := range stopWords {
		stopWordPatterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}

	actionWordPatterns = make([]*regexp.Regexp, len(actionWords))
	for i, w := range actionWords {
		actionWordPatterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
}
