package irs

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RelationshipTaxablePartnership is the fixed label for related orgs
// taxable as partnerships; the schema carries no relationship field for
// those.
const RelationshipTaxablePartnership = "Taxable Entity / Partnership"

const relationshipDefault = "Related"
const nameUnknown = "Unknown"

// RelatedOrg is one related organization parsed out of Schedule R.
type RelatedOrg struct {
	EIN            string
	Name           string
	Relationship   string
	ControllingPct *float64
}

// The e-file schema has varied across years and vendors; each logical
// field is resolved through an ordered fallback chain of element names.
var (
	exemptOrgGroups  = []string{"IdRelatedTaxExemptOrgGrp", "RelatedTaxExemptOrgGrp"}
	partnershipGroup = []string{"IdRelatedOrgTaxablePartnershipGrp", "RelatedOrgTaxablePartnershipGrp"}

	einFields          = []string{"EIN", "EINOfRelatedOrg"}
	nameFields         = []string{"OrganizationName", "NameOfRelatedOrganization", "BusinessName"}
	nestedNameFields   = []string{"BusinessNameLine1Txt", "BusinessNameLine1"}
	relationshipFields = []string{"OrganizationRelationship", "PrimaryActivitiesCd"}
	percentFields      = []string{"OwnershipPct", "ControllingInterestPct"}
)

// ParseScheduleR extracts the related organizations and the filing year
// from a form 990 XML document. Entries without a resolvable EIN are
// dropped; a missing name becomes a placeholder since it does not prevent
// graph linkage.
func ParseScheduleR(document []byte) ([]RelatedOrg, string, error) {
	root, err := parseDocument(document)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse filing document: %w", err)
	}

	// The vocabulary namespace varies by filing year. Resolve it once
	// from the root element and bind every later lookup to it.
	ns := root.name.Space

	var related []RelatedOrg
	for _, group := range root.findAll(ns, exemptOrgGroups) {
		org, ok := parseExemptOrg(ns, group)
		if ok {
			related = append(related, org)
		}
	}
	for _, group := range root.findAll(ns, partnershipGroup) {
		org, ok := parsePartnership(ns, group)
		if ok {
			related = append(related, org)
		}
	}

	year := ""
	if el := root.findFirst(ns, "TaxYr"); el != nil {
		year = el.text()
	}
	return related, year, nil
}

func parseExemptOrg(ns string, group *xmlElement) (RelatedOrg, bool) {
	ein := group.childText(ns, einFields)
	if ein == "" {
		return RelatedOrg{}, false
	}

	name := group.childText(ns, nameFields)
	if name == "" {
		if el := group.findFirstAny(ns, nestedNameFields); el != nil {
			name = el.text()
		}
	}
	if name == "" {
		name = nameUnknown
	}

	relationship := group.childText(ns, relationshipFields)
	if relationship == "" {
		relationship = relationshipDefault
	}

	var pct *float64
	if raw := group.childText(ns, percentFields); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			pct = &value
		}
	}

	return RelatedOrg{EIN: ein, Name: name, Relationship: relationship, ControllingPct: pct}, true
}

func parsePartnership(ns string, group *xmlElement) (RelatedOrg, bool) {
	ein := group.childText(ns, einFields[:1])
	if ein == "" {
		return RelatedOrg{}, false
	}

	name := group.childText(ns, nameFields)
	if name == "" {
		if el := group.findFirstAny(ns, nestedNameFields); el != nil {
			name = el.text()
		}
	}
	if name == "" {
		name = nameUnknown
	}

	return RelatedOrg{EIN: ein, Name: name, Relationship: RelationshipTaxablePartnership}, true
}

// xmlElement is a minimal parsed element tree; encoding/xml resolves
// namespace prefixes to URIs during decoding.
type xmlElement struct {
	name     xml.Name
	chardata strings.Builder
	children []*xmlElement
}

func parseDocument(document []byte) (*xmlElement, error) {
	decoder := xml.NewDecoder(bytes.NewReader(document))

	var stack []*xmlElement
	var root *xmlElement
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			el := &xmlElement{name: t.Name}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple document roots")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].chardata.Write(t)
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("empty document")
	}
	return root, nil
}

func (e *xmlElement) text() string {
	return strings.TrimSpace(e.chardata.String())
}

func (e *xmlElement) matches(ns, local string) bool {
	return e.name.Local == local && e.name.Space == ns
}

// findAll returns every descendant whose local name is one of names,
// bound to the resolved namespace.
func (e *xmlElement) findAll(ns string, names []string) []*xmlElement {
	var out []*xmlElement
	for _, child := range e.children {
		for _, name := range names {
			if child.matches(ns, name) {
				out = append(out, child)
				break
			}
		}
		out = append(out, child.findAll(ns, names)...)
	}
	return out
}

func (e *xmlElement) findFirst(ns, name string) *xmlElement {
	for _, child := range e.children {
		if child.matches(ns, name) {
			return child
		}
		if found := child.findFirst(ns, name); found != nil {
			return found
		}
	}
	return nil
}

func (e *xmlElement) findFirstAny(ns string, names []string) *xmlElement {
	for _, name := range names {
		if found := e.findFirst(ns, name); found != nil {
			return found
		}
	}
	return nil
}

// childText resolves a logical field through its fallback chain of direct
// child element names.
func (e *xmlElement) childText(ns string, names []string) string {
	for _, name := range names {
		for _, child := range e.children {
			if child.matches(ns, name) {
				if value := child.text(); value != "" {
					return value
				}
			}
		}
	}
	return ""
}
