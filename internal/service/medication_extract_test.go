package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aspirinEvents = `{
  "meta": {"results": {"total": 2}},
  "results": [
    {
      "patient": {
        "reaction": [{"reactionmeddrapt": "Nausea"}, {"reactionmeddrapt": "Headache"}],
        "drug": [
          {
            "drugdosageform": "TABLET",
            "openfda": {
              "brand_name": ["BAYER ASPIRIN", "ASPIRIN"],
              "generic_name": ["ASPIRIN"],
              "manufacturer_name": ["Bayer"],
              "route": ["ORAL"],
              "substance_name": ["ASPIRIN"],
              "pharm_class_epc": ["Nonsteroidal Anti-inflammatory Drug [EPC]"]
            }
          }
        ]
      }
    },
    {
      "patient": {
        "reaction": [{"reactionmeddrapt": "Nausea"}],
        "drug": [
          {
            "drugdosageform": "CAPSULE",
            "openfda": {"brand_name": ["ASPIRIN"], "route": ["ORAL"]}
          },
          {"medicinalproduct": "UNKNOWN"}
        ]
      }
    }
  ]
}`

func TestExtractMedicationInfo(t *testing.T) {
	info, err := ExtractMedicationInfo([]byte(aspirinEvents))
	require.NoError(t, err)

	assert.Equal(t, []string{"ASPIRIN", "BAYER ASPIRIN"}, info.BrandNames)
	assert.Equal(t, []string{"ASPIRIN"}, info.GenericNames)
	assert.Equal(t, []string{"Bayer"}, info.Manufacturers)
	assert.Equal(t, []string{"CAPSULE", "TABLET"}, info.DosageForms)
	assert.Equal(t, []string{"ORAL"}, info.Routes)
	assert.Equal(t, []string{"ASPIRIN"}, info.SubstanceNames)
	assert.Equal(t, []string{"Nonsteroidal Anti-inflammatory Drug [EPC]"}, info.PharmClasses)
	assert.Equal(t, []string{"Headache", "Nausea"}, info.Reactions)
}

func TestExtractMedicationInfo_NoResults(t *testing.T) {
	info, err := ExtractMedicationInfo([]byte(`{"meta": {}}`))
	require.NoError(t, err)

	assert.Empty(t, info.BrandNames)
	assert.NotNil(t, info.BrandNames)
	assert.Empty(t, info.Reactions)
	assert.Nil(t, firstValue(info.BrandNames))
	assert.Nil(t, joinedValues(info.Reactions))
}

func TestExtractMedicationInfo_InvalidJSON(t *testing.T) {
	_, err := ExtractMedicationInfo([]byte(`not json`))
	assert.Error(t, err)
}

func TestReduction(t *testing.T) {
	assert.Equal(t, "ASPIRIN", *firstValue([]string{"ASPIRIN", "BAYER ASPIRIN"}))
	assert.Equal(t, "Headache, Nausea", *joinedValues([]string{"Headache", "Nausea"}))
}
