package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"FairOdds/internal/adapter/news"
	"FairOdds/internal/adapter/oracle"
	"FairOdds/internal/adapter/polymarket"
	"FairOdds/internal/adapter/social"
	"FairOdds/internal/config"
	"FairOdds/internal/model"
	"FairOdds/internal/service"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

// nopRepo CLI模式不落库：查询恒未命中，写入直接丢弃
type nopRepo struct{}

func (nopRepo) GetBySlug(ctx context.Context, slug string) (*model.AnalysisCache, error) {
	return nil, nil
}
func (nopRepo) Upsert(ctx context.Context, entry *model.AnalysisCache) error { return nil }
func (nopRepo) Touch(ctx context.Context, slug string) error                 { return nil }
func (nopRepo) List(ctx context.Context, page, pageSize int) ([]*model.AnalysisCache, int64, error) {
	return nil, 0, nil
}

// 命令行单次分析工具：不经过HTTP与数据库，直接打印结果表格
// 用法：analyze -slug <slug或事件URL>
func main() {
	slug := flag.String("slug", "", "事件slug或polymarket事件URL")
	flag.Parse()
	if *slug == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	sourceCfg := func(name string) *config.SourceConfig {
		if s, ok := cfg.Sources[name]; ok {
			return &s
		}
		return &config.SourceConfig{}
	}

	market := polymarket.NewMarketSource(sourceCfg("polymarket"), logger)
	collector := service.NewCollector(
		news.NewNewsSource(sourceCfg("news"), logger),
		social.NewSocialSource(sourceCfg("social"), logger),
		&cfg.Analysis, logger,
	)
	svc := service.NewAnalysisService(
		market,
		oracle.NewModelSource(sourceCfg("oracle"), logger),
		collector, nopRepo{}, &cfg.Analysis, logger,
	)

	result, err := svc.Analyze(context.Background(), *slug, false)
	if err != nil {
		log.Fatalf("分析失败: %v", err)
	}

	fmt.Printf("%s [%s]\n", result.Title, result.EventType)
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Option", "Market%", "Fair%", "Dev", "Label", "Note")
	for _, opt := range result.Options {
		table.Append(
			opt.Option,
			fmt.Sprintf("%d", opt.MarketProbability),
			fmt.Sprintf("%d", opt.AiScore),
			fmt.Sprintf("%+d", opt.PricingDeviation),
			opt.PricingLabel,
			opt.Note,
		)
	}
	table.Render()
	fmt.Printf("ttl=%dmin\n", result.TTLMinutes)
}
