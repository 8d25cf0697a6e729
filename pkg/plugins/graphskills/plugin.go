// Package graphskills exposes the signed-in user's Microsoft Graph profile
// to plans.
package graphskills

import (
	"context"

	"github.com/go-go-golems/cozykitchen/pkg/graph"
	"github.com/go-go-golems/cozykitchen/pkg/kernel"
)

const PluginName = "GraphSkillsPlugin"

type ProfileReader interface {
	Me(ctx context.Context) (*graph.User, error)
}

type Plugin struct {
	profiles ProfileReader
}

func New(profiles ProfileReader) *Plugin {
	return &Plugin{profiles: profiles}
}

func (p *Plugin) PluginName() string {
	return PluginName
}

func (p *Plugin) PluginDescription() string {
	return "Reads skills, profile and past projects of the signed-in user from Microsoft Graph"
}

type Profile struct {
	DisplayName      string   `json:"displayName"`
	JobTitle         string   `json:"jobTitle,omitempty"`
	Department       string   `json:"department,omitempty"`
	Mail             string   `json:"mail,omitempty"`
	AboutMe          string   `json:"aboutMe,omitempty"`
	Interests        []string `json:"interests,omitempty"`
	Schools          []string `json:"schools,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

func (p *Plugin) KernelFunctions() ([]kernel.Function, error) {
	skills, err := kernel.NewNativeFunction("GetMySkills",
		"Returns the list of skills of the signed-in user",
		p.GetMySkills)
	if err != nil {
		return nil, err
	}
	profile, err := kernel.NewNativeFunction("GetMyProfile",
		"Returns the profile of the signed-in user: name, job title, about me, interests, schools and responsibilities",
		p.GetMyProfile)
	if err != nil {
		return nil, err
	}
	projects, err := kernel.NewNativeFunction("GetMyPastProjects",
		"Returns the past projects of the signed-in user",
		p.GetMyPastProjects)
	if err != nil {
		return nil, err
	}
	return []kernel.Function{skills, profile, projects}, nil
}

func (p *Plugin) GetMySkills(ctx context.Context) ([]string, error) {
	user, err := p.profiles.Me(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(user.Skills), nil
}

func (p *Plugin) GetMyProfile(ctx context.Context) (*Profile, error) {
	user, err := p.profiles.Me(ctx)
	if err != nil {
		return nil, err
	}
	return &Profile{
		DisplayName:      user.DisplayName,
		JobTitle:         user.JobTitle,
		Department:       user.Department,
		Mail:             user.Mail,
		AboutMe:          user.AboutMe,
		Interests:        user.Interests,
		Schools:          user.Schools,
		Responsibilities: user.Responsibilities,
	}, nil
}

func (p *Plugin) GetMyPastProjects(ctx context.Context) ([]string, error) {
	user, err := p.profiles.Me(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(user.PastProjects), nil
}

// plans print empty lists as [] rather than null
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
