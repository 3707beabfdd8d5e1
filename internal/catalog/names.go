package catalog

import (
	"math/rand"
	"strconv"
	"strings"
)

var firstNames = []string{
	"Ada", "Bruno", "Carmen", "Derek", "Elena", "Felix", "Grace", "Hugo",
	"Iris", "Jonas", "Klara", "Leo", "Mira", "Noah", "Olive", "Pablo",
}

var lastNames = []string{
	"Andersson", "Bauer", "Castillo", "Dubois", "Eriksen", "Fischer",
	"Gallo", "Haines", "Ivanov", "Jensen", "Kovacs", "Larsen",
	"Moreau", "Novak", "Okafor", "Petrov",
}

// nameSource 生成随机人名；重名时加序号后缀保证唯一
type nameSource struct {
	rng  *rand.Rand
	seen map[string]int
}

func newNameSource() *nameSource {
	return &nameSource{
		rng:  rand.New(rand.NewSource(rand.Int63())),
		seen: map[string]int{},
	}
}

func (s *nameSource) next() string {
	name := firstNames[s.rng.Intn(len(firstNames))] + " " + lastNames[s.rng.Intn(len(lastNames))]
	s.seen[name]++
	if n := s.seen[name]; n > 1 {
		return name + " " + strconv.Itoa(n)
	}
	return name
}

func slugify(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

// EmailFor 从人名派生演示用邮箱地址
func EmailFor(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
}
