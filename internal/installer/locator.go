package installer

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"host-provisioner/internal/config"
)

// ErrUnknownLocator is returned for a URL that is neither a raw file nor a repository.
var ErrUnknownLocator = errors.New("unrecognized repository locator")

// Kind is how a locator is acquired.
type Kind string

const (
	KindGit  Kind = config.KindGit
	KindFile Kind = config.KindFile
)

// rawHosts serve single files rather than repositories.
var rawHosts = map[string]bool{
	"raw.githubusercontent.com":  true,
	"gist.githubusercontent.com": true,
}

// forgeHosts serve git repositories at https://host/owner/repo.
var forgeHosts = map[string]bool{
	"github.com":    true,
	"gitlab.com":    true,
	"bitbucket.org": true,
	"codeberg.org":  true,
}

// scpLike matches git@github.com:owner/repo(.git).
var scpLike = regexp.MustCompile(`^[\w.-]+@[\w.-]+:[\w./~-]+$`)

// Classify decides how locator is acquired. A declared kind wins; otherwise the URL
// shape must match a known file host or repository form exactly.
func Classify(locator, declared string) (Kind, error) {
	switch declared {
	case config.KindGit:
		return KindGit, nil
	case config.KindFile:
		return KindFile, nil
	case "":
	default:
		return "", fmt.Errorf("%w: unknown kind %q for %s", ErrUnknownLocator, declared, locator)
	}

	if scpLike.MatchString(locator) {
		return KindGit, nil
	}

	u, err := url.Parse(locator)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownLocator, locator)
	}
	host := strings.ToLower(u.Hostname())

	switch u.Scheme {
	case "ssh", "git":
		return KindGit, nil
	case "http", "https":
		if rawHosts[host] {
			return KindFile, nil
		}
		if strings.HasSuffix(u.Path, ".git") {
			return KindGit, nil
		}
		if forgeHosts[host] && len(pathSegments(u.Path)) >= 2 {
			return KindGit, nil
		}
	}
	return "", fmt.Errorf("%w: %s (set kind to git or file)", ErrUnknownLocator, locator)
}

// LocalName derives the directory or file name a locator is stored under.
func LocalName(locator string) (string, error) {
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" {
		p = u.Path
	} else if i := strings.LastIndex(locator, ":"); i >= 0 {
		p = locator[i+1:]
	}

	name := strings.TrimSuffix(path.Base(strings.TrimRight(p, "/")), ".git")
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%w: cannot derive a local name from %s", ErrUnknownLocator, locator)
	}
	return name, nil
}

func pathSegments(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}
