package sync

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RawRecord is one remote row: element name -> text content, exactly as the
// upstream diffgram carries it. Absent elements are absent keys, never
// defaults.
type RawRecord map[string]string

// ChargeFeed fetches charge-detail and payment-schedule records from the SIS.
// Implementations must bound every call and surface transport failures as
// UpstreamUnavailable.
type ChargeFeed interface {
	DetailsByCharge(ctx context.Context, chargeID string) ([]RawRecord, error)
	DetailsByCustomer(ctx context.Context, customerID string) ([]RawRecord, error)
	DetailsByDateRange(ctx context.Context, from, to time.Time) ([]RawRecord, error)
	ScheduleByCharge(ctx context.Context, chargeID string) ([]RawRecord, error)
}

// SOAPFeed talks to the SIS invoice web service (SOAP 1.1, diffgram result
// sets; each row is a DT element).
type SOAPFeed struct {
	baseURL string
	client  *http.Client
}

func NewSOAPFeed(cfg Config) *SOAPFeed {
	return &SOAPFeed{
		baseURL: strings.TrimRight(cfg.FeedBaseURL, "/"),
		client:  &http.Client{Timeout: cfg.FetchTimeout},
	}
}

const soapActionNS = "http://FMS.dlsud.edu.ph/"

func (f *SOAPFeed) DetailsByCharge(ctx context.Context, chargeID string) ([]RawRecord, error) {
	return f.call(ctx, "InvoiceDetailViewByInvoiceID",
		fmt.Sprintf("<_invoiceid>%s</_invoiceid>", xmlEscape(chargeID)))
}

func (f *SOAPFeed) DetailsByCustomer(ctx context.Context, customerID string) ([]RawRecord, error) {
	return f.call(ctx, "InvoiceDetailViewByCustomerID",
		fmt.Sprintf("<_customerid>%s</_customerid>", xmlEscape(customerID)))
}

func (f *SOAPFeed) DetailsByDateRange(ctx context.Context, from, to time.Time) ([]RawRecord, error) {
	return f.call(ctx, "InvoiceDetailViewByDateCreated",
		fmt.Sprintf("<_datecreatedfrom>%s</_datecreatedfrom><_datecreatedto>%s</_datecreatedto>",
			from.Format("2006-01-02"), to.Format("2006-01-02")))
}

func (f *SOAPFeed) ScheduleByCharge(ctx context.Context, chargeID string) ([]RawRecord, error) {
	return f.call(ctx, "InvoicePayViewByInvoiceID",
		fmt.Sprintf("<_invoiceid>%s</_invoiceid>", xmlEscape(chargeID)))
}

func (f *SOAPFeed) call(ctx context.Context, op, params string) ([]RawRecord, error) {
	envelope := fmt.Sprintf(`<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
<soap:Body><%s xmlns=%q>%s</%s></soap:Body>
</soap:Envelope>`, op, soapActionNS, params, op)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/invoice.asmx",
		bytes.NewBufferString(envelope))
	if err != nil {
		return nil, &UpstreamUnavailable{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", soapActionNS+op))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &UpstreamUnavailable{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamUnavailable{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamUnavailable{Op: op, Err: err}
	}
	recs, err := ParseDiffgram(body)
	if err != nil {
		return nil, &UpstreamUnavailable{Op: op, Err: err}
	}
	return recs, nil
}

// xmlNode is a generic element tree for walking the diffgram without a
// per-operation response schema.
type xmlNode struct {
	XMLName xml.Name
	Content string    `xml:",chardata"`
	Nodes   []xmlNode `xml:",any"`
}

// ParseDiffgram extracts every DT row from a SOAP response body. An empty
// result set (no DocumentElement) is a valid, empty answer.
func ParseDiffgram(body []byte) ([]RawRecord, error) {
	var root xmlNode
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("decode soap response: %w", err)
	}
	var recs []RawRecord
	collectDT(&root, &recs)
	return recs, nil
}

func collectDT(n *xmlNode, out *[]RawRecord) {
	if n.XMLName.Local == "DT" {
		rec := make(RawRecord, len(n.Nodes))
		for _, child := range n.Nodes {
			rec[child.XMLName.Local] = strings.TrimSpace(child.Content)
		}
		*out = append(*out, rec)
		return
	}
	for i := range n.Nodes {
		collectDT(&n.Nodes[i], out)
	}
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
