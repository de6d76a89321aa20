package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yieldtree/engine/internal/config"
	"github.com/yieldtree/engine/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 批次任务队列
	CriticalQueue = constants.QueueCritical
)

// ErrQueueDisabled 队列未启用
var ErrQueueDisabled = errors.New("queue disabled")

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	cycleQueue   string
	retention    time.Duration
	maxRetry     int
	cycleTimeout time.Duration
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, cycleQueue: CriticalQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		cycleQueue:   CriticalQueue,
		retention:    48 * time.Hour,
		maxRetry:     3,
		cycleTimeout: 6 * time.Hour,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueDailyCycle 推送每日收益批次任务；同一周期已在队列中时返回 asynq.ErrTaskIDConflict
func (c *Client) EnqueueDailyCycle(payload DailyCyclePayload, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if !c.Enabled() {
		return nil, ErrQueueDisabled
	}
	if strings.TrimSpace(payload.CycleDate) == "" {
		return nil, errors.New("cycle_date is required")
	}
	task, err := NewDailyCycleTask(payload)
	if err != nil {
		return nil, err
	}
	options := append(c.DailyCycleOptions(payload.CycleDate), opts...)
	return c.client.Enqueue(task, options...)
}

// EnqueueCycleReplay 推送批次续跑任务
func (c *Client) EnqueueCycleReplay(payload CycleReplayPayload, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if !c.Enabled() {
		return nil, ErrQueueDisabled
	}
	if payload.RunID == 0 {
		return nil, errors.New("run_id is required")
	}
	task, err := NewCycleReplayTask(payload)
	if err != nil {
		return nil, err
	}
	options := append([]asynq.Option{
		asynq.Queue(c.cycleQueue),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(c.cycleTimeout),
	}, opts...)
	return c.client.Enqueue(task, options...)
}

// DailyCycleOptions 每日批次任务的公共选项
func (c *Client) DailyCycleOptions(cycleDate string) []asynq.Option {
	queueName := CriticalQueue
	retention := 48 * time.Hour
	maxRetry := 3
	timeout := 6 * time.Hour
	if c != nil && c.enabled {
		queueName = c.cycleQueue
		retention = c.retention
		maxRetry = c.maxRetry
		timeout = c.cycleTimeout
	}
	options := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
		asynq.Retention(retention),
	}
	if cycleDate != "" {
		options = append(options, asynq.TaskID(DailyCycleTaskID(cycleDate)))
	}
	return options
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 1
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 5, DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
