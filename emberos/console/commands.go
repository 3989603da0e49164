package console

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"ember/emberos/tasks"
)

type cmdFunc func(s *Service, args []string) error

type command struct {
	Name  string
	Usage string
	Desc  string
	Run   cmdFunc
}

type registry struct {
	cmds map[string]command
}

func newRegistry(s *Service) *registry {
	r := &registry{cmds: map[string]command{}}
	for _, c := range []command{
		{Name: "help", Usage: "help", Desc: "list commands", Run: cmdHelp},
		{Name: "ps", Usage: "ps", Desc: "show the task table", Run: cmdPS},
		{Name: "budget", Usage: "budget <+n|-n>", Desc: "adjust the default cycle budget", Run: cmdBudget},
		{Name: "spawn", Usage: "spawn <kind> <name> [budget] [arg]", Desc: "start a program", Run: cmdSpawn},
		{Name: "kinds", Usage: "kinds", Desc: "list spawnable programs", Run: cmdKinds},
	} {
		r.cmds[c.Name] = c
	}
	return r
}

func (r *registry) find(name string) (command, bool) {
	c, ok := r.cmds[name]
	return c, ok
}

func cmdHelp(s *Service, _ []string) error {
	names := make([]string, 0, len(s.reg.cmds))
	for n := range s.reg.cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		c := s.reg.cmds[n]
		s.printf("  %-28s %s", c.Usage, c.Desc)
	}
	return nil
}

func cmdPS(s *Service, _ []string) error {
	snap := s.k.Snapshot()
	if len(snap) == 0 {
		s.printf("no tasks")
		return nil
	}
	for _, t := range snap {
		line := fmt.Sprintf("%s %-12s %s / %s",
			t.Status.Icon(), t.Name,
			humanize.Comma(int64(t.LastCost)), humanize.Comma(int64(t.Budget)))
		if t.Violations > 0 {
			line += fmt.Sprintf("  strikes %d", t.Violations)
		}
		if t.Cooldown > 0 {
			line += fmt.Sprintf("  bench %d", t.Cooldown)
		}
		s.printf("%s", line)
	}
	return nil
}

func cmdBudget(s *Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: budget <+n|-n>")
	}
	delta, err := strconv.ParseInt(strings.TrimPrefix(args[0], "+"), 10, 64)
	if err != nil {
		return fmt.Errorf("bad delta %q", args[0])
	}
	got := s.k.AdjustDefaultBudget(delta)
	s.printf("default budget now %s cycles", humanize.Comma(int64(got)))
	return nil
}

func cmdSpawn(s *Service, args []string) error {
	if len(args) < 2 || len(args) > 4 {
		return fmt.Errorf("usage: spawn <kind> <name> [budget] [arg]")
	}
	kind, name := args[0], args[1]
	build, ok := tasks.Lookup(kind)
	if !ok {
		return fmt.Errorf("unknown kind %q (try kinds)", kind)
	}
	var budget, arg uint64
	var err error
	if len(args) >= 3 {
		if budget, err = strconv.ParseUint(args[2], 10, 64); err != nil {
			return fmt.Errorf("bad budget %q", args[2])
		}
	}
	if len(args) == 4 {
		if arg, err = strconv.ParseUint(args[3], 10, 64); err != nil {
			return fmt.Errorf("bad arg %q", args[3])
		}
	}
	entry := build(tasks.Config{Name: name, Arg: arg})
	if err := s.k.Spawn(name, budget, entry, arg); err != nil {
		return err
	}
	s.printf("spawned %s (%s)", name, kind)
	return nil
}

func cmdKinds(s *Service, _ []string) error {
	s.printf("%s", strings.Join(tasks.Kinds(), " "))
	return nil
}
