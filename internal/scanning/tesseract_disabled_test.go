//go:build !tesseract

package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewTesseract without the tesseract build tag", func() {
	It("reports that the engine was not built", func() {
		s, err := NewTesseract("eng")
		Expect(err).To(MatchError(ErrEngineNotBuilt))
		Expect(s).To(BeNil())
	})
})
