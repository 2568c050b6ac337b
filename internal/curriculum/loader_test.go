package curriculum_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/p-n-ai/pai-kids/internal/curriculum"
	"github.com/p-n-ai/pai-kids/internal/domain"
)

func TestLoader_EmbeddedPools(t *testing.T) {
	loader, err := curriculum.NewLoader("")
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	for _, subject := range domain.Subjects {
		for _, profile := range []domain.Profile{domain.ProfileJunior, domain.ProfileSenior} {
			if len(loader.Topics(subject, profile)) == 0 {
				t.Errorf("Topics(%s, %s) is empty", subject, profile)
			}
		}
	}

	junior := loader.Topics(domain.SubjectMath, domain.ProfileJunior)
	senior := loader.Topics(domain.SubjectMath, domain.ProfileSenior)
	if slices.Equal(junior, senior) {
		t.Error("MATH pools should differ between profiles")
	}

	logicJ := loader.Topics(domain.SubjectLogic, domain.ProfileJunior)
	logicS := loader.Topics(domain.SubjectLogic, domain.ProfileSenior)
	if !slices.Equal(logicJ, logicS) {
		t.Error("LOGIC pool should be shared between profiles")
	}
}

func TestLoader_RandomTopic(t *testing.T) {
	loader, err := curriculum.NewLoader("")
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	pool := loader.Topics(domain.SubjectEnglish, domain.ProfileSenior)
	for range 20 {
		topic, ok := loader.RandomTopic(domain.SubjectEnglish, domain.ProfileSenior)
		if !ok {
			t.Fatal("RandomTopic() found nothing")
		}
		if !slices.Contains(pool, topic) {
			t.Fatalf("RandomTopic() = %q, not in pool", topic)
		}
	}
}

func TestLoader_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "math.yaml"), []byte(`
pools:
  - subject: MATH
    profile: junior
    topics:
      - Count the ducks
`), 0o644)
	os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(`pools: [{subject: ART, topics: [x]}]`), 0o644)
	os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644)

	loader, err := curriculum.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	got := loader.Topics(domain.SubjectMath, domain.ProfileJunior)
	if !slices.Equal(got, []string{"Count the ducks"}) {
		t.Errorf("Topics(MATH, junior) = %v, want override", got)
	}
	if len(loader.Topics(domain.SubjectMath, domain.ProfileSenior)) < 2 {
		t.Error("senior MATH pool should keep embedded topics")
	}
}

func TestLoader_MissingDir(t *testing.T) {
	if _, err := curriculum.NewLoader(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("NewLoader() should fail for a missing directory")
	}
}
