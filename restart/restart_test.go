// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package restart_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/charm-openstack-dashboard/registry"
	"github.com/juju/charm-openstack-dashboard/restart"
)

type stubServices struct {
	*testing.Stub
}

func (s stubServices) Start(name string) error {
	s.AddCall("Start", name)
	return s.NextErr()
}

func (s stubServices) Stop(name string) error {
	s.AddCall("Stop", name)
	return s.NextErr()
}

func (s stubServices) Restart(name string) error {
	s.AddCall("Restart", name)
	return s.NextErr()
}

type pauseState struct {
	paused bool
	err    error
}

func (p *pauseState) IsPaused() (bool, error) { return p.paused, p.err }

type restartSuite struct {
	testing.IsolationSuite

	stub     *testing.Stub
	paused   *pauseState
	clock    *testclock.Clock
	dir      string
	x, y, z  string
	restarts []registry.RestartEntry
}

var _ = gc.Suite(&restartSuite{})

func (s *restartSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.stub = &testing.Stub{}
	s.paused = &pauseState{}
	s.clock = testclock.NewClock(time.Now())
	s.dir = c.MkDir()
	s.x = filepath.Join(s.dir, "x.conf")
	s.y = filepath.Join(s.dir, "y.conf")
	s.z = filepath.Join(s.dir, "z.conf")
	s.write(c, s.x, "x")
	s.write(c, s.y, "y")
	s.restarts = []registry.RestartEntry{
		{Path: s.x, Services: []string{"s1", "s3"}},
		{Path: s.y, Services: []string{"s2"}},
		{Path: s.z, Services: []string{"s3", "s1"}},
	}
}

func (s *restartSuite) write(c *gc.C, path, content string) {
	c.Assert(os.WriteFile(path, []byte(content), 0644), jc.ErrorIsNil)
}

func (s *restartSuite) coordinator(c *gc.C, stopStart bool, delay time.Duration) *restart.Coordinator {
	coord, err := restart.NewCoordinator(restart.Config{
		RestartMap: s.restarts,
		Services:   stubServices{s.stub},
		Paused:     s.paused,
		Clock:      s.clock,
		StopStart:  stopStart,
		Delay:      delay,
	})
	c.Assert(err, jc.ErrorIsNil)
	return coord
}

func (s *restartSuite) TestValidate(c *gc.C) {
	_, err := restart.NewCoordinator(restart.Config{Paused: s.paused, Clock: s.clock})
	c.Check(err, gc.ErrorMatches, "nil Services not valid")
	_, err = restart.NewCoordinator(restart.Config{Services: stubServices{s.stub}, Clock: s.clock})
	c.Check(err, gc.ErrorMatches, "nil Paused not valid")
	_, err = restart.NewCoordinator(restart.Config{Services: stubServices{s.stub}, Paused: s.paused})
	c.Check(err, gc.ErrorMatches, "nil Clock not valid")
}

func (s *restartSuite) TestHashMissingFile(c *gc.C) {
	h, err := restart.Hash(s.z)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(h, gc.Equals, "")
	h, err = restart.Hash(s.x)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(h, gc.Equals, "2d711642b726b04401627ca9fbac32f5c8530fb1903cc4db02258717921a4881")
}

func (s *restartSuite) TestOnlyChangedFilesRestart(c *gc.C) {
	err := s.coordinator(c, false, 0).OnChange(func() error {
		s.write(c, s.x, "changed")
		s.write(c, s.y, "y")
		return nil
	})
	c.Assert(err, jc.ErrorIsNil)
	s.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "Restart", Args: []interface{}{"s1"}},
		{FuncName: "Restart", Args: []interface{}{"s3"}},
	})
}

func (s *restartSuite) TestNoChangeNoRestart(c *gc.C) {
	err := s.coordinator(c, false, 0).OnChange(func() error { return nil })
	c.Assert(err, jc.ErrorIsNil)
	s.stub.CheckNoCalls(c)
}

func (s *restartSuite) TestCreatedFileCountsAsChange(c *gc.C) {
	err := s.coordinator(c, false, 0).OnChange(func() error {
		s.write(c, s.z, "new")
		return nil
	})
	c.Assert(err, jc.ErrorIsNil)
	s.stub.CheckCallNames(c, "Restart", "Restart")
	s.stub.CheckCall(c, 0, "Restart", "s3")
	s.stub.CheckCall(c, 1, "Restart", "s1")
}

func (s *restartSuite) TestServicesDeduplicated(c *gc.C) {
	err := s.coordinator(c, false, 0).OnChange(func() error {
		s.write(c, s.x, "changed")
		s.write(c, s.y, "changed")
		s.write(c, s.z, "changed")
		return nil
	})
	c.Assert(err, jc.ErrorIsNil)
	s.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "Restart", Args: []interface{}{"s1"}},
		{FuncName: "Restart", Args: []interface{}{"s3"}},
		{FuncName: "Restart", Args: []interface{}{"s2"}},
	})
}

func (s *restartSuite) TestStopStartWithDelay(c *gc.C) {
	coord := s.coordinator(c, true, 3*time.Second)
	done := make(chan error, 1)
	go func() {
		done <- coord.OnChange(func() error {
			s.write(c, s.x, "changed")
			s.write(c, s.y, "changed")
			return nil
		})
	}()

	for i := 0; i < 3; i++ {
		c.Assert(s.clock.WaitAdvance(3*time.Second, testing.LongWait, 1), jc.ErrorIsNil)
	}
	select {
	case err := <-done:
		c.Assert(err, jc.ErrorIsNil)
	case <-time.After(testing.LongWait):
		c.Fatalf("timed out waiting for restarts")
	}
	s.stub.CheckCalls(c, []testing.StubCall{
		{FuncName: "Stop", Args: []interface{}{"s1"}},
		{FuncName: "Stop", Args: []interface{}{"s3"}},
		{FuncName: "Stop", Args: []interface{}{"s2"}},
		{FuncName: "Start", Args: []interface{}{"s1"}},
		{FuncName: "Start", Args: []interface{}{"s3"}},
		{FuncName: "Start", Args: []interface{}{"s2"}},
	})
}

func (s *restartSuite) TestStopStartWithoutDelay(c *gc.C) {
	err := s.coordinator(c, true, 0).OnChange(func() error {
		s.write(c, s.y, "changed")
		return nil
	})
	c.Assert(err, jc.ErrorIsNil)
	s.stub.CheckCallNames(c, "Stop", "Start")
}

func (s *restartSuite) TestPausedRunsOperationOnly(c *gc.C) {
	s.paused.paused = true
	ran := false
	err := s.coordinator(c, false, 0).OnChange(func() error {
		ran = true
		s.write(c, s.x, "changed")
		return nil
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(ran, jc.IsTrue)
	s.stub.CheckNoCalls(c)
}

func (s *restartSuite) TestPausedCheckFails(c *gc.C) {
	s.paused.err = errors.New("database locked")
	err := s.coordinator(c, false, 0).OnChange(func() error {
		c.Fatalf("operation should not run")
		return nil
	})
	c.Assert(err, gc.ErrorMatches, "checking paused state: database locked")
}

func (s *restartSuite) TestFailedOperationStillRestarts(c *gc.C) {
	err := s.coordinator(c, false, 0).OnChange(func() error {
		s.write(c, s.y, "changed")
		return errors.New("boom")
	})
	c.Assert(err, gc.ErrorMatches, "boom")
	s.stub.CheckCalls(c, []testing.StubCall{{FuncName: "Restart", Args: []interface{}{"s2"}}})
}

func (s *restartSuite) TestServiceFailurePropagates(c *gc.C) {
	s.stub.SetErrors(errors.New("restart failed"))
	err := s.coordinator(c, false, 0).OnChange(func() error {
		s.write(c, s.x, "changed")
		return nil
	})
	c.Assert(err, gc.ErrorMatches, "restart failed")
	s.stub.CheckCallNames(c, "Restart")
}
