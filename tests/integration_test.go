package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/tabsplit/tabsplit/internal/bill"
	"github.com/tabsplit/tabsplit/internal/interpreting"
	"github.com/tabsplit/tabsplit/internal/scanning"
	"github.com/tabsplit/tabsplit/internal/session"
	"github.com/tabsplit/tabsplit/internal/web"
)

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

// MockScanner for testing
type MockScanner struct {
	receiptData *scanning.ReceiptData
	scanErr     error
}

func (m *MockScanner) ScanReceipt(imageData []byte, contentType string) (*scanning.ReceiptData, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	return m.receiptData, nil
}

func (m *MockScanner) Close() error {
	return nil
}

// MockInterpreter for testing
type MockInterpreter struct {
	result       *interpreting.Result
	interpretErr error
	gotPeople    []string
}

func (m *MockInterpreter) Interpret(text string, items []bill.Item, people []string) (*interpreting.Result, error) {
	m.gotPeople = append([]string{}, people...)
	if m.interpretErr != nil {
		return nil, m.interpretErr
	}
	return m.result, nil
}

func (m *MockInterpreter) Close() error {
	return nil
}

// MockAuditor for testing
type MockAuditor struct {
	report   string
	auditErr error
}

func (m *MockAuditor) Review(receipt bill.Receipt, settlement bill.Settlement) (string, error) {
	if m.auditErr != nil {
		return "", m.auditErr
	}
	return m.report, nil
}

func (m *MockAuditor) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		tempDir     string
		store       session.Store
		images      session.ImageStore
		scanner     *MockScanner
		interpreter *MockInterpreter
		auditor     *MockAuditor
		service     *session.Service
		server      *web.Server
		ghServer    *ghttp.Server
		err         error
	)

	BeforeEach(func() {
		tempDir, err = os.MkdirTemp("", "tabsplit-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Real store and image storage, mocked model boundaries
		store, err = session.NewBoltStore(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		images, err = session.NewLocalImageStore(filepath.Join(tempDir, "images"))
		Expect(err).NotTo(HaveOccurred())

		scanner = &MockScanner{
			receiptData: &scanning.ReceiptData{
				Items: []scanning.ItemData{
					{ID: "1", Name: "Burger", Price: 10, Quantity: 1},
					{ID: "2", Name: "Fries", Price: 6, Quantity: 1},
				},
				Subtotal: 16,
				Tax:      1.6,
				Tip:      3.2,
				Total:    20.8,
				Currency: "$",
			},
		}
		interpreter = &MockInterpreter{
			result: &interpreting.Result{
				Reply: "Burger to Tom, fries shared between Tom and Ana.",
				Actions: []bill.Action{
					{ItemIDs: []string{"1"}, People: []string{"Tom"}, Op: bill.OpAssign},
					{ItemIDs: []string{"2"}, People: []string{"Tom", "Ana"}, Op: bill.OpAssign},
				},
			},
		}
		auditor = &MockAuditor{report: "## Fair split\nEveryone pays for what they had."}

		service = session.NewService(store, images, scanner, interpreter, auditor)
		server = web.NewServer(service, web.BasicAuth{}) // No auth for testing convenience

		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if store != nil {
			store.Close()
		}
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
	})

	It("should run a full upload, command, settlement, audit and reset flow", func() {
		// One handler per request below
		ghServer.AppendHandlers(
			server.ServeHTTP, // upload
			server.ServeHTTP, // command
			server.ServeHTTP, // settlement
			server.ServeHTTP, // audit
			server.ServeHTTP, // reset
			server.ServeHTTP, // get after reset
		)

		// --- Step 1: upload the receipt photo ---

		fileContent := []byte("fake jpeg bytes")
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "dinner.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(fileContent)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).NotTo(HaveOccurred())

		req, err := http.NewRequest("POST", ghServer.URL()+"/api/sessions", body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var sess session.Session
		Expect(json.NewDecoder(resp.Body).Decode(&sess)).NotTo(HaveOccurred())
		Expect(sess.Receipt.Items).To(HaveLen(2))
		Expect(sess.Assignments["1"]).To(BeEmpty())

		// The image is on disk under the session's name
		_, err = images.Get(sess.ImagePath)
		Expect(err).NotTo(HaveOccurred())

		// --- Step 2: a chat command assigns the items ---

		cmdBody, _ := json.Marshal(map[string]string{"text": "Tom had the burger, he and Ana split the fries"})
		resp, err = http.Post(ghServer.URL()+"/api/sessions/"+sess.ID+"/commands", "application/json", bytes.NewBuffer(cmdBody))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var result session.CommandResult
		Expect(json.NewDecoder(resp.Body).Decode(&result)).NotTo(HaveOccurred())
		Expect(result.Reply).To(ContainSubstring("Burger to Tom"))

		// Nobody was on the bill before the first command
		Expect(interpreter.gotPeople).To(BeEmpty())

		// --- Step 3: the settlement reflects the assignments ---

		resp, err = http.Get(ghServer.URL() + "/api/sessions/" + sess.ID + "/settlement")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var settlement bill.Settlement
		Expect(json.NewDecoder(resp.Body).Decode(&settlement)).NotTo(HaveOccurred())
		Expect(settlement.People).To(HaveLen(2))
		Expect(settlement.People[0].Name).To(Equal("Tom"))
		Expect(settlement.People[0].Total).To(BeNumerically("~", 16.9, 1e-9))
		Expect(settlement.People[1].Name).To(Equal("Ana"))
		Expect(settlement.People[1].Total).To(BeNumerically("~", 3.9, 1e-9))
		Expect(settlement.Unassigned).To(BeEmpty())

		// --- Step 4: the audit reviews the split ---

		resp, err = http.Post(ghServer.URL()+"/api/sessions/"+sess.ID+"/audit", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var audit map[string]string
		Expect(json.NewDecoder(resp.Body).Decode(&audit)).NotTo(HaveOccurred())
		Expect(audit["report"]).To(ContainSubstring("Fair split"))

		// --- Step 5: reset discards everything ---

		req, err = http.NewRequest("DELETE", ghServer.URL()+"/api/sessions/"+sess.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		_, err = images.Get(sess.ImagePath)
		Expect(err).To(HaveOccurred())

		resp, err = http.Get(ghServer.URL() + "/api/sessions/" + sess.ID)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should leave assignments untouched when interpretation fails", func() {
		ghServer.AppendHandlers(
			server.ServeHTTP, // upload
			server.ServeHTTP, // failing command
			server.ServeHTTP, // get session
		)

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "dinner.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("fake jpeg bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).NotTo(HaveOccurred())

		req, err := http.NewRequest("POST", ghServer.URL()+"/api/sessions", body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var sess session.Session
		Expect(json.NewDecoder(resp.Body).Decode(&sess)).NotTo(HaveOccurred())

		interpreter.interpretErr = http.ErrHandlerTimeout

		cmdBody, _ := json.Marshal(map[string]string{"text": "Tom had the burger"})
		resp, err = http.Post(ghServer.URL()+"/api/sessions/"+sess.ID+"/commands", "application/json", bytes.NewBuffer(cmdBody))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

		resp, err = http.Get(ghServer.URL() + "/api/sessions/" + sess.ID)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var after session.Session
		Expect(json.NewDecoder(resp.Body).Decode(&after)).NotTo(HaveOccurred())
		Expect(after.Assignments["1"]).To(BeEmpty())
		Expect(after.Assignments["2"]).To(BeEmpty())
		Expect(after.Transcript).To(HaveLen(2)) // user message + apology
	})
})
