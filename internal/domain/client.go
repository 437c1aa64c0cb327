package domain

// Client is a client-directory entry. The service only reads identity
// attributes from it; client records are owned by the directory.
type Client struct {
	ID         string
	LastName   string
	FirstName  string
	ClientType string
	AgencyCode string
}

// DisplayName renders the denormalized name stored on tickets at creation.
func (c Client) DisplayName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	return c.LastName + " " + c.FirstName
}
