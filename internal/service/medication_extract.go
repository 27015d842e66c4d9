package service

import (
	"encoding/json"
	"sort"
	"strings"
)

// ExtractedInfo is the normalized view of a drug event search response. Every
// list is sorted and free of duplicates.
type ExtractedInfo struct {
	BrandNames     []string `json:"brand_names"`
	GenericNames   []string `json:"generic_names"`
	Manufacturers  []string `json:"manufacturers"`
	DosageForms    []string `json:"dosage_forms"`
	Routes         []string `json:"routes"`
	SubstanceNames []string `json:"substance_names"`
	PharmClasses   []string `json:"pharm_classes"`
	Reactions      []string `json:"reactions"`
}

type drugEventResponse struct {
	Results []struct {
		Patient struct {
			Reaction []struct {
				ReactionMedDRAPT string `json:"reactionmeddrapt"`
			} `json:"reaction"`
			Drug []struct {
				DrugDosageForm string `json:"drugdosageform"`
				OpenFDA        struct {
					BrandName        []string `json:"brand_name"`
					GenericName      []string `json:"generic_name"`
					ManufacturerName []string `json:"manufacturer_name"`
					Route            []string `json:"route"`
					SubstanceName    []string `json:"substance_name"`
					PharmClassEPC    []string `json:"pharm_class_epc"`
				} `json:"openfda"`
			} `json:"drug"`
		} `json:"patient"`
	} `json:"results"`
}

type stringSet map[string]struct{}

func (s stringSet) add(values ...string) {
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ExtractMedicationInfo walks results[].patient and collects reactions, dosage
// forms and the openfda product fields. A body without results yields empty
// lists.
func ExtractMedicationInfo(body []byte) (ExtractedInfo, error) {
	var resp drugEventResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ExtractedInfo{}, err
	}

	var (
		brands        = stringSet{}
		generics      = stringSet{}
		manufacturers = stringSet{}
		dosageForms   = stringSet{}
		routes        = stringSet{}
		substances    = stringSet{}
		pharmClasses  = stringSet{}
		reactions     = stringSet{}
	)

	for _, result := range resp.Results {
		for _, reaction := range result.Patient.Reaction {
			reactions.add(reaction.ReactionMedDRAPT)
		}
		for _, drug := range result.Patient.Drug {
			dosageForms.add(drug.DrugDosageForm)
			brands.add(drug.OpenFDA.BrandName...)
			generics.add(drug.OpenFDA.GenericName...)
			manufacturers.add(drug.OpenFDA.ManufacturerName...)
			routes.add(drug.OpenFDA.Route...)
			substances.add(drug.OpenFDA.SubstanceName...)
			pharmClasses.add(drug.OpenFDA.PharmClassEPC...)
		}
	}

	return ExtractedInfo{
		BrandNames:     brands.sorted(),
		GenericNames:   generics.sorted(),
		Manufacturers:  manufacturers.sorted(),
		DosageForms:    dosageForms.sorted(),
		Routes:         routes.sorted(),
		SubstanceNames: substances.sorted(),
		PharmClasses:   pharmClasses.sorted(),
		Reactions:      reactions.sorted(),
	}, nil
}

// firstValue returns the smallest element of a sorted list, nil when empty
func firstValue(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// joinedValues returns the list joined with ", ", nil when empty
func joinedValues(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	v := strings.Join(values, ", ")
	return &v
}
