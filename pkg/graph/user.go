package graph

// User is the subset of the Graph user resource the skills plugin reads.
type User struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"displayName"`
	Mail              string   `json:"mail,omitempty"`
	UserPrincipalName string   `json:"userPrincipalName,omitempty"`
	JobTitle          string   `json:"jobTitle,omitempty"`
	Department        string   `json:"department,omitempty"`
	OfficeLocation    string   `json:"officeLocation,omitempty"`
	AboutMe           string   `json:"aboutMe,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	Interests         []string `json:"interests,omitempty"`
	Schools           []string `json:"schools,omitempty"`
	PastProjects      []string `json:"pastProjects,omitempty"`
	Responsibilities  []string `json:"responsibilities,omitempty"`
}

// userSelect lists properties that /me only returns when selected.
var userSelect = []string{
	"id",
	"displayName",
	"mail",
	"userPrincipalName",
	"jobTitle",
	"department",
	"officeLocation",
	"aboutMe",
	"skills",
	"interests",
	"schools",
	"pastProjects",
	"responsibilities",
}
