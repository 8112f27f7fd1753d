package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/fixia-app/FixiaCore/internal/pkg/scheduler"
)

// AdminSchedulerController exposes the job registry for operators: status,
// manual runs, pause and resume.
type AdminSchedulerController struct {
	sched *scheduler.Scheduler
}

func NewAdminSchedulerController(sched *scheduler.Scheduler) *AdminSchedulerController {
	return &AdminSchedulerController{sched: sched}
}

// HandleStatus returns the registry state for all jobs.
func (ac *AdminSchedulerController) HandleStatus(c *fiber.Ctx) error {
	return c.JSON(ac.sched.Status())
}

// HandleRunJob triggers one synchronous run of a named job.
func (ac *AdminSchedulerController) HandleRunJob(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := ac.sched.RunJob(name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownJob) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown job"})
		}
		log.Errorf("[Admin] Manual run of job %s failed: %v", name, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Job run failed"})
	}
	return c.JSON(fiber.Map{"ok": true, "job": name})
}

// HandleStartJob resumes a paused job cadence.
func (ac *AdminSchedulerController) HandleStartJob(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := ac.sched.StartJob(name); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown job"})
	}
	return c.JSON(fiber.Map{"ok": true, "job": name})
}

// HandleStopJob pauses a job cadence. The job stays registered.
func (ac *AdminSchedulerController) HandleStopJob(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := ac.sched.StopJob(name); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown job"})
	}
	return c.JSON(fiber.Map{"ok": true, "job": name})
}
