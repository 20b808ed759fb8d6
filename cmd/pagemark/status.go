package main

import (
	"github.com/spf13/cobra"

	"github.com/pagemark/pagemark/internal/api"
	"github.com/pagemark/pagemark/internal/state"
)

type pageStatus struct {
	Page          int    `json:"page" yaml:"page"`
	Stage         int    `json:"stage" yaml:"stage"`
	StageName     string `json:"stage_name" yaml:"stage_name"`
	ImageMasks    int    `json:"image_masks" yaml:"image_masks"`
	QuestionMasks int    `json:"question_masks" yaml:"question_masks"`
	Approved      bool   `json:"approved" yaml:"approved"`
	Override      bool   `json:"override,omitempty" yaml:"override,omitempty"`
}

type documentStatus struct {
	PDF         string            `json:"pdf" yaml:"pdf"`
	Sidecar     string            `json:"sidecar" yaml:"sidecar"`
	PageCount   int               `json:"page_count" yaml:"page_count"`
	Groups      int               `json:"question_groups" yaml:"question_groups"`
	AllApproved bool              `json:"all_approved" yaml:"all_approved"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Pages       []pageStatus      `json:"pages" yaml:"pages"`
}

var statusCmd = &cobra.Command{
	Use:   "status <pdf>",
	Short: "Show per-page workflow progress for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		sess, info, err := openSession(args[0], logger)
		if err != nil {
			return err
		}

		doc := sess.Snapshot()
		allApproved, _ := doc.AllApproved()
		out := documentStatus{
			PDF:         info.Path,
			Sidecar:     sess.Path(),
			PageCount:   doc.PageCount,
			Groups:      len(doc.QuestionGroups),
			AllApproved: allApproved,
			Metadata:    doc.Metadata,
		}
		for n := 1; n <= doc.PageCount; n++ {
			p := doc.Pages[n]
			out.Pages = append(out.Pages, pageStatus{
				Page:          n,
				Stage:         int(p.Workflow.Stage),
				StageName:     p.Workflow.Stage.String(),
				ImageMasks:    len(p.MasksOfType(state.MaskImage)),
				QuestionMasks: len(p.MasksOfType(state.MaskQuestion)),
				Approved:      p.Approved,
				Override:      p.ApprovalOverride,
			})
		}
		return api.Output(out)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
