// Package github publishes generated files to a new GitHub repository.
package github

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Client handles GitHub operations
type Client struct {
	client *github.Client
	token  string
	owner  string
}

// NewClient creates a new GitHub client. An empty owner creates repositories
// under the authenticated user.
func NewClient(token, owner string) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return newClient(oauth2.NewClient(context.Background(), ts), token, owner)
}

func newClient(hc *http.Client, token, owner string) *Client {
	return &Client{
		client: github.NewClient(hc),
		token:  token,
		owner:  owner,
	}
}

// Enabled reports whether a token is configured
func (c *Client) Enabled() bool {
	return c != nil && c.token != ""
}

// Publish creates a repository, commits files into it and pushes. It returns
// the repository's web URL.
func (c *Client) Publish(ctx context.Context, name, description string, files map[string]string) (string, error) {
	dir, err := os.MkdirTemp("", "codeagent-publish-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := WriteFilesToDirectory(dir, files); err != nil {
		return "", err
	}

	repo, err := c.CreateRepository(ctx, name, description, false)
	if err != nil {
		return "", err
	}

	if err := c.PushFiles(ctx, repo.GetCloneURL(), dir, "Add generated code: "+description); err != nil {
		return "", err
	}
	return repo.GetHTMLURL(), nil
}

// CreateRepository creates a new GitHub repository
func (c *Client) CreateRepository(ctx context.Context, name, description string, private bool) (*github.Repository, error) {
	repo := &github.Repository{
		Name:        github.String(name),
		Description: github.String(description),
		Private:     github.Bool(private),
		AutoInit:    github.Bool(false),
	}

	createdRepo, resp, err := c.client.Repositories.Create(ctx, c.owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			if c.owner != "" {
				return nil, fmt.Errorf("failed to create repository: organization %q not found or token lacks permission: %w", c.owner, err)
			}
			return nil, fmt.Errorf("failed to create repository: token lacks 'repo' permission: %w", err)
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	return createdRepo, nil
}

// PushFiles initialises a repository in localPath, commits everything and
// pushes it to repoURL.
func (c *Client) PushFiles(ctx context.Context, repoURL, localPath, commitMessage string) error {
	repo, err := git.PlainInit(localPath, false)
	if err != nil {
		return fmt.Errorf("failed to init repository: %w", err)
	}

	_, err = repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote: %w", err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if err := w.AddGlob("."); err != nil {
		return fmt.Errorf("failed to add files: %w", err)
	}

	_, err = w.Commit(commitMessage, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Code Agent",
			Email: "bot@codeagent.dev",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth: &githttp.BasicAuth{
			Username: "git",
			Password: c.token,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}

// WriteFilesToDirectory writes files to a local directory
func WriteFilesToDirectory(baseDir string, files map[string]string) error {
	for filePath, content := range files {
		fullPath := filepath.Join(baseDir, filepath.Base(filePath))

		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", fullPath, err)
		}
	}

	return nil
}
