package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stemsi/exstem-adaptive/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	Setup()
}

func TestNonblankRejectsWhitespace(t *testing.T) {
	req := model.SubmitAnswerRequest{
		QuestionID:   "0b0f6c2e-2f8c-4a53-9d8e-7f1f4f1c2b11",
		ChosenOption: "   ",
	}
	err := binding.Validator.ValidateStruct(&req)
	require.Error(t, err)

	fields := TranslateErrors(err)
	assert.Equal(t, "chosen_option must not be blank", fields["chosen_option"])
}

func TestTranslateErrors_UsesJSONNames(t *testing.T) {
	bank := model.ItemBankImport{
		Assessment: model.CreateAssessmentRequest{Name: "Algebra I"},
		Questions: []model.QuestionImport{{
			Skill:          "linear equations",
			Content:        "2x = 4",
			Options:        []byte(`["1","2"]`),
			CorrectAnswer:  "2",
			Discrimination: 0,
		}},
	}
	err := binding.Validator.ValidateStruct(&bank)
	require.Error(t, err)

	fields := TranslateErrors(err)
	assert.Contains(t, fields, "discrimination")
}

func TestTranslateErrors_NonValidationError(t *testing.T) {
	fields := TranslateErrors(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), fields["detail"])
}
