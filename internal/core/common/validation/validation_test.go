package validation_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/internal/core/common/validation"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validation Suite")
}

func fieldErrors(err *errors.AppError) []errors.ValidationError {
	details, ok := err.Details.(errors.ValidationErrors)
	Expect(ok).To(BeTrue())
	return details.Errors
}

var _ = Describe("ValidationBuilder", func() {
	It("should pass when every rule holds", func() {
		v := validation.NewValidator()
		v.Field("email", "dm@rampur.gov.in").Required().Email()
		v.Field("amount", "50000.00").Required().PositiveDecimal(errors.ErrCodeInvalidAmount)
		v.Field("dod", "2024-03-01").Date()
		Expect(v.Validate()).To(BeNil())
	})

	It("should report only the first failure of each field", func() {
		v := validation.NewValidator()
		v.Field("remark", "  ").Required().MinLength(3)
		v.Field("email", "not-an-email").Email()

		err := v.Validate()
		Expect(err).NotTo(BeNil())
		Expect(err.StatusCode).To(Equal(400))

		fields := fieldErrors(err)
		Expect(fields).To(HaveLen(2))
		Expect(fields[0].Field).To(Equal("remark"))
		Expect(fields[0].Message).To(Equal("remark is required"))
		Expect(fields[1].Code).To(Equal(string(errors.ErrCodeInvalidEmail)))
	})

	DescribeTable("PositiveDecimal",
		func(amount string, ok bool) {
			v := validation.NewValidator()
			v.Field("amount", amount).PositiveDecimal(errors.ErrCodeInvalidAmount)
			if ok {
				Expect(v.Validate()).To(BeNil())
			} else {
				Expect(v.Validate()).NotTo(BeNil())
			}
		},
		Entry("whole rupees", "400000", true),
		Entry("paise", "0.50", true),
		Entry("zero", "0", false),
		Entry("negative", "-10", false),
		Entry("words", "four lakh", false),
	)

	It("should restrict values to the allowed set", func() {
		v := validation.NewValidator()
		v.Field("paymentMethod", "crypto").OneOf(errors.ErrCodeInvalidPaymentMethod, "bank_transfer", "cash")
		err := v.Validate()
		Expect(err).NotTo(BeNil())
		Expect(fieldErrors(err)[0].Code).To(Equal(string(errors.ErrCodeInvalidPaymentMethod)))
	})

	It("should refuse dates in the future", func() {
		v := validation.NewValidator()
		v.Field("dod", time.Now().Add(48*time.Hour).Format("2006-01-02")).Date()
		err := v.Validate()
		Expect(err).NotTo(BeNil())
		Expect(err.Error()).To(Equal("dod cannot be in the future"))
	})
})
