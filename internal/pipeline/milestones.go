package pipeline

import (
	"github.com/sirupsen/logrus"

	"nevstats/internal/model"
	"nevstats/internal/table"
)

const DatasetMilestones = "milestones"

// DefaultMilestones 产业关键政策与事件
func DefaultMilestones() []model.Milestone {
	return []model.Milestone{
		{Event: "补贴政策启动", Date: "2013-09-01", Category: model.MilestoneSupport},
		{Event: "免征购置税启动", Date: "2014-07-01", Category: model.MilestoneSupport},
		{Event: "骗补大核查", Date: "2016-01-01", Category: model.MilestoneRegulation},
		{Event: "双积分政策发布", Date: "2017-09-01", Category: model.MilestoneSupport},
		{Event: "特斯拉上海建厂", Date: "2018-07-10", Category: model.MilestoneMarket},
		{Event: "补贴大幅退坡", Date: "2019-06-25", Category: model.MilestoneAdjustment},
		{Event: "新冠疫情爆发", Date: "2020-01-23", Category: model.MilestoneRegulation},
		{Event: "产业发展规划(2035)", Date: "2020-11-02", Category: model.MilestoneSupport},
		{Event: "国补正式退出", Date: "2023-01-01", Category: model.MilestoneAdjustment},
		{Event: "以旧换新政策", Date: "2024-04-26", Category: model.MilestoneSupport},
		{Event: "月度渗透率突破50%", Date: "2024-10-01", Category: model.MilestoneRecord},
	}
}

func BuildMilestones(milestones []model.Milestone, n table.Normalizer, w TableWriter, logger logrus.FieldLogger, path string) (Result, error) {
	t := n.Milestones(milestones)
	result := Result{Dataset: DatasetMilestones, Path: path, Table: t}
	if err := w.WriteFile(path, t); err != nil {
		return result, &WriteError{Dataset: DatasetMilestones, Path: path, Err: err}
	}
	loggerOrDiscard(logger).WithFields(logrus.Fields{
		"dataset": DatasetMilestones,
		"path":    path,
		"rows":    t.Len(),
	}).Info("milestones table written")
	return result, nil
}
