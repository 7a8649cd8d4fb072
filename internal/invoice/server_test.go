package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/dc-invoice/internal/challan"
	"github.com/zombor/dc-invoice/internal/scanning"
)

func multipartBody(field, filename string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(content)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(writer.Close()).To(Succeed())
	return body, writer.FormDataContentType()
}

func decodeInvoiceResponse(resp *http.Response) invoiceResponse {
	var out invoiceResponse
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, &out)).To(Succeed())
	return out
}

var _ = Describe("Server", func() {
	var (
		scanner     *mockScanner
		service     *Service
		server      *Server
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		scanner = newMockScanner()
		service = NewServiceWithDeps(scanner, newTestCalculator(), "",
			&mockIDGenerator{id: "inv-1"},
			&mockTimeSource{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)})
		server = NewServerWithMux(service, "1.2.3", http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("handleHealth", func() {
		It("reports the engine and version", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]string
			Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("engine", "mock"))
			Expect(body).To(HaveKeyWithValue("version", "1.2.3"))
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests", func() {
			req, err := http.NewRequest(http.MethodOptions, ghttpServer.URL()+"/api/invoices", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("handleUploadChallan", func() {
		var (
			body        *bytes.Buffer
			contentType string
			resp        *http.Response
		)

		BeforeEach(func() {
			body, contentType = multipartBody("file", "dc.jpg", []byte("fake image"))
		})

		JustBeforeEach(func() {
			var err error
			resp, err = http.Post(ghttpServer.URL()+"/api/invoices", contentType, body)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			resp.Body.Close()
		})

		When("the upload is scanned", func() {
			It("should return status OK", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})

			It("returns the invoice", func() {
				out := decodeInvoiceResponse(resp)
				Expect(out.Invoice.ID).To(Equal("inv-1"))
				Expect(out.Invoice.Items).To(HaveLen(2))
				Expect(out.Invoice.DCNumber).To(Equal("DC12345"))
				Expect(out.Warning).To(BeEmpty())
			})

			It("derives the content type from the extension", func() {
				Expect(scanner.lastType).To(Equal("image/jpeg"))
			})

			It("sets CORS headers", func() {
				Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			})
		})

		When("no rows are found", func() {
			BeforeEach(func() {
				scanner.units = []string{"hello world"}
			})

			It("returns the empty invoice with a warning", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				out := decodeInvoiceResponse(resp)
				Expect(out.Invoice.Items).To(BeEmpty())
				Expect(out.Warning).To(Equal(noItemsWarning))
			})
		})

		When("no file is attached", func() {
			BeforeEach(func() {
				body, contentType = multipartBody("", "", nil)
			})

			It("should return status Bad Request", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})

			It("does not call the scanner", func() {
				Expect(scanner.calls).To(BeZero())
			})
		})

		When("the body is not multipart", func() {
			BeforeEach(func() {
				body = bytes.NewBufferString("{}")
				contentType = "application/json"
			})

			It("should return status Bad Request", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the engine fails", func() {
			BeforeEach(func() {
				scanner.scanErr = errors.New("engine unavailable")
			})

			It("should return status Bad Gateway", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
			})

			It("returns the error message", func() {
				b, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(b)).To(ContainSubstring("engine unavailable"))
			})
		})

		When("the image can't be decoded", func() {
			BeforeEach(func() {
				scanner.scanErr = fmt.Errorf("%w: decoding image", scanning.ErrUnsupportedImage)
			})

			It("should return status Bad Request", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleTextInvoice", func() {
		var (
			reqBody string
			resp    *http.Response
		)

		JustBeforeEach(func() {
			var err error
			resp, err = http.Post(ghttpServer.URL()+"/api/invoices/text", "application/json", strings.NewReader(reqBody))
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			resp.Body.Close()
		})

		When("units are provided", func() {
			BeforeEach(func() {
				reqBody = `{"units": ["DC12345", "10.5 200 150"]}`
			})

			It("returns the invoice", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				out := decodeInvoiceResponse(resp)
				Expect(out.Invoice.Items).To(HaveLen(1))
				Expect(out.Invoice.Items[0].WeightKg).To(Equal(10.5))
				Expect(out.Invoice.Items[0].Rate).To(Equal(200.0))
				Expect(out.Invoice.DCNumber).To(Equal("DC12345"))
			})

			It("does not call the scanner", func() {
				Expect(scanner.calls).To(BeZero())
			})
		})

		When("the body is invalid", func() {
			BeforeEach(func() {
				reqBody = `not json`
			})

			It("should return status Bad Request", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the amounts overflow", func() {
			BeforeEach(func() {
				reqBody = `{"units": ["1e200 kg 1e200 rs"]}`
			})

			It("should return status Unprocessable Entity", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			})

			It("returns a JSON error body", func() {
				b, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				var out map[string]string
				Expect(json.Unmarshal(b, &out)).To(Succeed())
				Expect(out).To(HaveKeyWithValue("error", overflowMessage))
			})
		})

		When("the body is too large", func() {
			BeforeEach(func() {
				reqBody = `{"units": ["` + strings.Repeat("a", int(maxJSONBodySize)) + `"]}`
			})

			It("should return status Bad Request", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				b, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(b)).To(ContainSubstring("too large"))
			})
		})
	})

	Describe("handleExport", func() {
		var (
			query   string
			reqBody string
			resp    *http.Response
		)

		BeforeEach(func() {
			query = ""
			reqBody = `{"items": [{"fabric_type": "Fabric", "weight_kg": 10.5, "rate": 200, "amount": 1}]}`
		})

		JustBeforeEach(func() {
			var err error
			resp, err = http.Post(ghttpServer.URL()+"/api/invoices/export"+query, "application/json", strings.NewReader(reqBody))
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			resp.Body.Close()
		})

		When("exporting CSV", func() {
			It("returns the CSV attachment", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/csv"))
				Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("invoice.csv"))
				b, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(b)).To(Equal("fabric_type,weight_kg,rate,amount\nFabric,10.5,200,2100\n"))
			})
		})

		When("exporting XLSX", func() {
			BeforeEach(func() {
				query = "?format=xlsx"
			})

			It("returns the workbook attachment", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("invoice.xlsx"))
				b, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				// xlsx is a zip archive
				Expect(b).To(HavePrefix("PK"))
			})
		})

		When("the format is unknown", func() {
			BeforeEach(func() {
				query = "?format=pdf"
			})

			It("should return status Bad Request", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the body is invalid", func() {
			BeforeEach(func() {
				reqBody = `{"items": "nope"}`
			})

			It("should return status Bad Request", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the body is too large", func() {
			BeforeEach(func() {
				reqBody = `{"dc_number": "` + strings.Repeat("9", int(maxJSONBodySize)) + `", "items": []}`
			})

			It("should return status Bad Request", func() {
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("unknown methods", func() {
		It("should return status Method Not Allowed", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/invoices")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
		})
	})
})

var _ = Describe("writeJSON", func() {
	It("writes the status and body", func() {
		rec := httptest.NewRecorder()
		writeJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})
		Expect(rec.Code).To(Equal(http.StatusCreated))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(rec.Body.String()).To(MatchJSON(`{"status": "ok"}`))
	})

	When("the value can't be encoded", func() {
		It("reports an internal error as JSON", func() {
			rec := httptest.NewRecorder()
			writeJSON(rec, http.StatusOK, map[string]float64{"total": math.Inf(1)})
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).To(MatchJSON(`{"error": "Internal server error"}`))
		})
	})
})

var _ = Describe("finiteInvoice", func() {
	It("accepts ordinary amounts", func() {
		inv := newTestCalculator().Invoice("", []challan.LineItem{challan.NewLineItem("Fabric", 10.5, 200)})
		Expect(finiteInvoice(&inv)).To(BeTrue())
	})

	It("rejects infinite amounts", func() {
		inv := newTestCalculator().Invoice("", []challan.LineItem{challan.NewLineItem("Fabric", 1e200, 1e200)})
		Expect(finiteInvoice(&inv)).To(BeFalse())
	})

	It("rejects NaN totals", func() {
		inv := newTestCalculator().Invoice("", []challan.LineItem{
			challan.NewLineItem("Fabric", 1e200, 1e200),
			challan.NewLineItem("Fabric", -1e200, 1e200),
		})
		Expect(finiteInvoice(&inv)).To(BeFalse())
	})
})

var _ = Describe("contentTypeFromFilename", func() {
	DescribeTable("maps extensions",
		func(filename, expected string) {
			Expect(contentTypeFromFilename(filename)).To(Equal(expected))
		},
		Entry("jpeg", "DC.JPEG", "image/jpeg"),
		Entry("png", "dc.png", "image/png"),
		Entry("pdf", "dc.pdf", "application/pdf"),
		Entry("heic", "IMG_0001.HEIC", "image/heic"),
		Entry("unknown", "dc.bin", "application/octet-stream"),
	)
})
