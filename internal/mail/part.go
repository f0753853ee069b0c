// Package mail provides access to reimbursement emails and a provider
// independent view of their MIME structure.
package mail

import (
	"strings"

	"reimburse/pkg/models"
)

// Part is one node of a message's MIME tree. Body holds decoded inline
// content; attachment bytes are fetched separately by AttachmentID.
type Part struct {
	MimeType     string
	Filename     string
	AttachmentID string
	Size         int64
	Body         []byte
	Children     []*Part
}

// walk visits the tree depth-first in document order until visit returns false.
func walk(root *Part, visit func(*Part) bool) {
	if root == nil {
		return
	}
	stack := []*Part{root}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p == nil {
			continue
		}
		if !visit(p) {
			return
		}
		for i := len(p.Children) - 1; i >= 0; i-- {
			stack = append(stack, p.Children[i])
		}
	}
}

// CollectAttachments returns every named part that can be downloaded, in
// document order.
func CollectAttachments(root *Part) []models.AttachmentDescriptor {
	attachments := make([]models.AttachmentDescriptor, 0)
	walk(root, func(p *Part) bool {
		if p.Filename != "" && p.AttachmentID != "" {
			attachments = append(attachments, models.AttachmentDescriptor{
				AttachmentID: p.AttachmentID,
				Filename:     p.Filename,
				MimeType:     p.MimeType,
				Size:         p.Size,
			})
		}
		return true
	})
	return attachments
}

// FirstText returns the first non-empty text/plain or text/html body in
// depth-first document order. Named parts are attachments and are skipped.
func FirstText(root *Part) string {
	var text string
	walk(root, func(p *Part) bool {
		if p.Filename != "" || len(p.Body) == 0 {
			return true
		}
		mt := strings.ToLower(p.MimeType)
		if !strings.HasPrefix(mt, "text/plain") && !strings.HasPrefix(mt, "text/html") {
			return true
		}
		if strings.TrimSpace(string(p.Body)) == "" {
			return true
		}
		text = string(p.Body)
		return false
	})
	return text
}
