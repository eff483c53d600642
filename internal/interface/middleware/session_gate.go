package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kakomonhub/api/internal/application"
	"github.com/kakomonhub/api/pkg/helpers"
)

// RouteClass partitions paths by access policy. Exactly one class applies to
// any path; classification is computed once per request from static prefixes.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtected
	RouteOnboarding
)

func (rc RouteClass) String() string {
	switch rc {
	case RouteProtected:
		return "protected"
	case RouteOnboarding:
		return "onboarding"
	default:
		return "public"
	}
}

// GateState is what the gate knows about the requester.
type GateState int

const (
	Anonymous GateState = iota
	AuthenticatedIncomplete
	AuthenticatedComplete
)

func (s GateState) String() string {
	switch s {
	case AuthenticatedIncomplete:
		return "authenticated_incomplete"
	case AuthenticatedComplete:
		return "authenticated_complete"
	default:
		return "anonymous"
	}
}

// Outcome is the gate's verdict for one request.
type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectOnboarding
	RedirectLanding
)

// Classifier maps a request path to its RouteClass from static prefix lists.
// Onboarding prefixes win over protected ones so /onboarding can live under
// an otherwise protected subtree.
type Classifier struct {
	onboarding []string
	protected  []string
}

func NewClassifier(protected, onboarding []string) *Classifier {
	return &Classifier{protected: protected, onboarding: onboarding}
}

func (cl *Classifier) Classify(path string) RouteClass {
	for _, p := range cl.onboarding {
		if hasPathPrefix(path, p) {
			return RouteOnboarding
		}
	}
	for _, p := range cl.protected {
		if hasPathPrefix(path, p) {
			return RouteProtected
		}
	}
	return RoutePublic
}

// hasPathPrefix matches whole path segments, so /searching is not /search.
func hasPathPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/' || path[len(prefix)] == '?'
}

// Decide is the gate's routing policy: total over every (state, class) pair
// and free of side effects, so the table can be checked exhaustively.
func Decide(state GateState, class RouteClass) Outcome {
	switch class {
	case RoutePublic:
		return Allow
	case RouteOnboarding:
		switch state {
		case Anonymous:
			return RedirectLogin
		case AuthenticatedComplete:
			return RedirectLanding
		default:
			return Allow
		}
	default: // RouteProtected
		switch state {
		case Anonymous:
			return RedirectLogin
		case AuthenticatedIncomplete:
			return RedirectOnboarding
		default:
			return Allow
		}
	}
}

// SessionGate evaluates the signup-to-access state machine on every page
// navigation. It never blocks on profile lookups for public paths.
type SessionGate struct {
	Parser      *helpers.SessionParser
	Profiles    *application.ProfileService
	Classifier  *Classifier
	Logger      *logrus.Logger
	LoginPath   string
	OnboardPath string
	LandingPath string
}

func NewSessionGate(parser *helpers.SessionParser, profiles *application.ProfileService, cl *Classifier, logger *logrus.Logger, loginPath, onboardPath, landingPath string) *SessionGate {
	return &SessionGate{
		Parser:      parser,
		Profiles:    profiles,
		Classifier:  cl,
		Logger:      logger,
		LoginPath:   loginPath,
		OnboardPath: onboardPath,
		LandingPath: landingPath,
	}
}

func (g *SessionGate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		class := g.Classifier.Classify(c.Request.URL.Path)

		state := Anonymous
		token, err := c.Cookie(helpers.AccessCookie)
		if err == nil && token != "" {
			if claims, perr := g.Parser.Parse(token); perr == nil {
				c.Set("userID", claims.UserID())
				c.Set("userEmail", claims.Email)
				state = g.resolveAuthenticatedState(c, class, claims.UserID())
			}
		}

		switch Decide(state, class) {
		case Allow:
			c.Next()
		case RedirectLogin:
			target := g.LoginPath
			if class == RouteProtected {
				// Preserve where the user was headed.
				target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
			}
			c.Redirect(http.StatusTemporaryRedirect, target)
			c.Abort()
		case RedirectOnboarding:
			c.Redirect(http.StatusTemporaryRedirect, g.OnboardPath)
			c.Abort()
		case RedirectLanding:
			c.Redirect(http.StatusTemporaryRedirect, g.LandingPath)
			c.Abort()
		}
	}
}

// resolveAuthenticatedState distinguishes the two authenticated states. A
// failed profile lookup is treated as incomplete: re-running onboarding is
// safer than silently granting access.
func (g *SessionGate) resolveAuthenticatedState(c *gin.Context, class RouteClass, uid string) GateState {
	if class == RoutePublic {
		// Public paths allow every state; skip the lookup.
		return AuthenticatedIncomplete
	}
	complete, err := g.Profiles.Completeness(c.Request.Context(), uid)
	if err != nil {
		g.Logger.WithError(err).WithField("user_id", uid).Warn("profile lookup failed, gating as incomplete")
		return AuthenticatedIncomplete
	}
	if complete {
		return AuthenticatedComplete
	}
	return AuthenticatedIncomplete
}
