package eventbus

// Topic names shared by producers and consumers. Payloads are full snapshots
// of the owning service's row, JSON-encoded.
const (
	TopicTenantCreated     = "tenant.created"
	TopicTenantUpdated     = "tenant.updated"
	TopicTenantDeleted     = "tenant.deleted"
	TopicUserCreated       = "user.created"
	TopicDepartmentCreated = "department.created"
	TopicDocumentCreated   = "document.created"

	TopicAuditSubmitted       = "audit.submitted"
	TopicAuditProgramApproved = "audit-program-approved"
	TopicAuditProgramRejected = "audit-program-rejected"
)
