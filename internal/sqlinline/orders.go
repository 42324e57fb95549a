package sqlinline

const QOrdersCreateTable = `--sql e2872a3e-3d56-4744-b36d-ea3807f3a51a
create table if not exists lightx_orders (
    id uuid primary key,
    order_id text not null unique,
    operation text not null,
    endpoint text not null,
    status_endpoint text not null,
    status text not null default 'pending',
    max_retries_hint integer not null default 0,
    avg_response_seconds double precision not null default 0,
    output_url text,
    mask_url text,
    attempts integer not null default 0,
    error_message text,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
`

const QOrdersCreateStatusIndex = `--sql 527a530e-ff3e-474c-86e5-4650cc1d2cbd
create index if not exists lightx_orders_status_created_idx
    on lightx_orders (status, created_at desc);
`

const QOrdersInsert = `--sql 38d7c76a-0c51-4571-bbe8-f13989d9712e
insert into lightx_orders (
    id, order_id, operation, endpoint, status_endpoint, status, max_retries_hint, avg_response_seconds
) values ($1, $2, $3, $4, $5, $6, $7, $8)
on conflict (order_id) do nothing;
`

const QOrdersResolve = `--sql da8325d1-cf3b-4970-9473-1037ca0dcb1b
update lightx_orders
set status = $2,
    output_url = coalesce($3, output_url),
    mask_url = coalesce($4, mask_url),
    attempts = attempts + $5,
    error_message = $6,
    updated_at = now()
where order_id = $1;
`

const QOrdersGetByOrderID = `--sql d08db00a-6767-4156-a2a9-318e6edcb87d
select id, order_id, operation, endpoint, status_endpoint, status, max_retries_hint, avg_response_seconds,
       output_url, mask_url, attempts, error_message, created_at, updated_at
from lightx_orders
where order_id = $1;
`

const QOrdersListRecent = `--sql 3909c26e-c7cc-4753-96c0-98e2b20f2c5d
select id, order_id, operation, endpoint, status_endpoint, status, max_retries_hint, avg_response_seconds,
       output_url, mask_url, attempts, error_message, created_at, updated_at
from lightx_orders
where ($1 = '' or status = $1)
order by created_at desc
limit $2;
`
