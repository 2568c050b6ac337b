package curriculum

import "github.com/p-n-ai/pai-kids/internal/domain"

// AnyProfile marks a pool shared by every age tier.
const AnyProfile = "any"

// Pool is a list of question topics for one subject and age tier.
type Pool struct {
	Subject domain.Subject `yaml:"subject"`
	Profile string         `yaml:"profile"`
	Topics  []string       `yaml:"topics"`
}

type poolFile struct {
	Pools []Pool `yaml:"pools"`
}

type poolKey struct {
	subject domain.Subject
	profile string
}
