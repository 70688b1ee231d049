package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deployed_at TIMESTAMP WITH TIME ZONE,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_user_id ON workflows(user_id);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			CREATE TABLE endpoints (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL DEFAULT '',
				url TEXT NOT NULL DEFAULT '',
				endpoint_type VARCHAR(50) NOT NULL,
				metadata JSONB,
				is_active BOOLEAN NOT NULL DEFAULT true,
				workflow_id VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_endpoints_workflow_id ON endpoints(workflow_id);

			CREATE TABLE subscriptions (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL DEFAULT '',
				endpoint_id VARCHAR(255) NOT NULL,
				event_type VARCHAR(100) NOT NULL,
				conditions JSONB,
				is_enabled BOOLEAN NOT NULL DEFAULT true,
				workflow_id VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_subscriptions_event_type ON subscriptions(event_type) WHERE is_enabled;
			CREATE INDEX idx_subscriptions_workflow_id ON subscriptions(workflow_id);
		`,
		2: `
			CREATE TABLE delivery_logs (
				id VARCHAR(255) PRIMARY KEY,
				subscription_id VARCHAR(255) NOT NULL DEFAULT '',
				endpoint_id VARCHAR(255) NOT NULL DEFAULT '',
				event_type VARCHAR(100) NOT NULL,
				payload JSONB,
				status_code INTEGER NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT '',
				delivered_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_delivery_logs_subscription ON delivery_logs(subscription_id, delivered_at DESC);
		`,
	}
}
